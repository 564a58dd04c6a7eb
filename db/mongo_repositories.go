package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todolist/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// objectIDFromHex maps malformed ids to ErrNotFound since no record can carry them
func objectIDFromHex(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return objectID, nil
}

// newObjectID reuses a caller supplied hex id when valid
func newObjectID(id string) primitive.ObjectID {
	if objectID, err := primitive.ObjectIDFromHex(id); err == nil {
		return objectID
	}
	return primitive.NewObjectID()
}

type mongoUserDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	Username     string             `bson:"username"`
	PasswordHash string             `bson:"password"`
	CreatedAt    time.Time          `bson:"created_at"`
}

type mongoTodoDocument struct {
	ID            primitive.ObjectID `bson:"_id"`
	OwnerUsername string             `bson:"username"`
	Text          string             `bson:"todo"`
	DueDate       string             `bson:"date"`
	Status        string             `bson:"status"`
	CreatedAt     time.Time          `bson:"created_at"`
}

// MongoUserRepository implements the UserRepository interface for MongoDB
type MongoUserRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(client *mongo.Client, database, collection string) *MongoUserRepository {
	return &MongoUserRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

func (r *MongoUserRepository) coll() *mongo.Collection {
	return r.client.Database(r.database).Collection(r.collection)
}

// Create inserts a user, returning ErrDuplicate when the username is taken
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	doc := mongoUserDocument{
		ID:           newObjectID(user.ID),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}

	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("error inserting user: %w", err)
	}

	user.ID = doc.ID.Hex()
	return user, nil
}

// FindByID finds a user by ID
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

// FindByUsername finds a user by exact, case-sensitive username
func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// UpdatePasswordHash replaces the stored hash of a user
func (r *MongoUserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"password": passwordHash}})
	if err != nil {
		return fmt.Errorf("error updating password hash: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.coll().FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return &user, nil
}

// MongoTodoRepository implements the TodoRepository interface for MongoDB
type MongoTodoRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoTodoRepository creates a new MongoTodoRepository
func NewMongoTodoRepository(client *mongo.Client, database, collection string) *MongoTodoRepository {
	return &MongoTodoRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

func (r *MongoTodoRepository) coll() *mongo.Collection {
	return r.client.Database(r.database).Collection(r.collection)
}

// Create inserts a todo
func (r *MongoTodoRepository) Create(ctx context.Context, todo *models.Todo) (*models.Todo, error) {
	if todo.Status == "" {
		todo.Status = models.TodoStatusIncomplete
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = time.Now()
	}
	doc := mongoTodoDocument{
		ID:            newObjectID(todo.ID),
		OwnerUsername: todo.OwnerUsername,
		Text:          todo.Text,
		DueDate:       todo.DueDate,
		Status:        string(todo.Status),
		CreatedAt:     todo.CreatedAt,
	}

	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("error inserting todo: %w", err)
	}

	todo.ID = doc.ID.Hex()
	return todo, nil
}

// FindByID finds a todo by ID
func (r *MongoTodoRepository) FindByID(ctx context.Context, id string) (*models.Todo, error) {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var todo models.Todo
	err = r.coll().FindOne(ctx, bson.M{"_id": objectID}).Decode(&todo)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding todo: %w", err)
	}

	return &todo, nil
}

// FindAllByOwner returns the owner's todos in insertion order
func (r *MongoTodoRepository) FindAllByOwner(ctx context.Context, username string) ([]*models.Todo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll().Find(ctx, bson.M{"username": username}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding todos: %w", err)
	}
	defer cursor.Close(ctx)

	todos := []*models.Todo{}
	if err = cursor.All(ctx, &todos); err != nil {
		return nil, fmt.Errorf("error decoding todos: %w", err)
	}

	return todos, nil
}

// UpdateStatus sets the status of a todo
func (r *MongoTodoRepository) UpdateStatus(ctx context.Context, id string, status models.TodoStatus) error {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("error updating todo: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID deletes a todo by ID
func (r *MongoTodoRepository) DeleteByID(ctx context.Context, id string) error {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.coll().DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("error deleting todo: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoSessionRepository implements the SessionRepository interface for MongoDB
type MongoSessionRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoSessionRepository creates a new MongoSessionRepository
func NewMongoSessionRepository(client *mongo.Client, database, collection string) *MongoSessionRepository {
	return &MongoSessionRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

func (r *MongoSessionRepository) coll() *mongo.Collection {
	return r.client.Database(r.database).Collection(r.collection)
}

// Create stores a session binding
func (r *MongoSessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if _, err := r.coll().InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting session: %w", err)
	}
	return nil
}

// FindByID finds a session binding by token
func (r *MongoSessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding session: %w", err)
	}
	return &session, nil
}

// DeleteByID removes a session binding; deleting a missing binding is not an error
func (r *MongoSessionRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.coll().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// MongoEventLogRepository implements the EventLogRepository interface for MongoDB
type MongoEventLogRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoEventLogRepository creates a new MongoEventLogRepository
func NewMongoEventLogRepository(client *mongo.Client, database, collection string) *MongoEventLogRepository {
	return &MongoEventLogRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

func (r *MongoEventLogRepository) coll() *mongo.Collection {
	return r.client.Database(r.database).Collection(r.collection)
}

// Create creates a new event log
func (r *MongoEventLogRepository) Create(ctx context.Context, eventLog *models.EventLog) error {
	if eventLog.ID == "" {
		eventLog.ID = primitive.NewObjectID().Hex()
	}
	if eventLog.CreatedAt == nil {
		now := time.Now()
		eventLog.CreatedAt = &now
	}

	if _, err := r.coll().InsertOne(ctx, eventLog); err != nil {
		return fmt.Errorf("error inserting event log: %w", err)
	}
	return nil
}

// FindLatestByUsername finds the newest event logs of a user
func (r *MongoEventLogRepository) FindLatestByUsername(ctx context.Context, username string, limit int) ([]*models.EventLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.coll().Find(ctx, bson.M{"username": username}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding event logs: %w", err)
	}
	defer cursor.Close(ctx)

	eventLogs := []*models.EventLog{}
	if err = cursor.All(ctx, &eventLogs); err != nil {
		return nil, fmt.Errorf("error decoding event logs: %w", err)
	}

	return eventLogs, nil
}
