package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"todolist/db"
	"todolist/internal/auth"
	"todolist/internal/config"
	"todolist/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoURI := cfg.MongoURI
	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}
	if mongoURI == "" {
		log.Fatalf("MONGODB_URI is not set in .env file. Migration cannot continue.")
	}

	// Set SQLite path
	sqlitePath := cfg.SQLitePath
	if sqlitePath == "" {
		sqlitePath = os.Getenv("SQLITE_PATH")
	}
	if sqlitePath == "" {
		sqlitePath = filepath.Join("data", cfg.DatabaseName+".db")
	}

	todoCollection := todoCollectionName()

	// Connect to MongoDB
	log.Println("Connecting to MongoDB...")
	mongoClient, err := db.ConnectToMongo(context.Background(), mongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	// Connect to SQLite
	log.Println("Connecting to SQLite...")
	sqliteDB, err := db.ConnectToSQLite(sqlitePath)
	if err != nil {
		log.Fatalf("Failed to connect to SQLite: %v", err)
	}
	defer sqliteDB.Close()

	// Initialize SQLite schema
	if err := db.InitializeSchema(sqliteDB); err != nil {
		log.Fatalf("Failed to initialize SQLite schema: %v", err)
	}

	log.Println("Migrating users...")
	migrateUsers(mongoClient, cfg.DatabaseName, db.NewSQLiteUserRepository(sqliteDB))

	log.Printf("Migrating todos from %q...", todoCollection)
	migrateTodos(mongoClient.Database(cfg.DatabaseName).Collection(todoCollection), db.NewSQLiteTodoRepository(sqliteDB))

	log.Println("Migration completed successfully!")
	log.Printf("SQLite database is available at: %s", sqlitePath)
	log.Println("To use SQLite, set DATABASE_TYPE=sqlite in your .env file")
}

// todoCollectionName defaults to "todoapp", where the Flask deployment kept todos
func todoCollectionName() string {
	if name := os.Getenv("MIGRATE_TODO_COLLECTION"); name != "" {
		return name
	}
	return "todoapp"
}

type hashCounts struct {
	bcrypt   int
	werkzeug int
	unknown  int
}

func (c *hashCounts) add(hash string) {
	switch {
	case strings.HasPrefix(hash, "$2"):
		c.bcrypt++
	case auth.IsLegacyHash(hash):
		c.werkzeug++
	default:
		c.unknown++
	}
}

func (c hashCounts) report() {
	if c.werkzeug > 0 {
		log.Printf("%d users have werkzeug password hashes; they are rehashed with bcrypt on their next login", c.werkzeug)
	}
	if c.unknown > 0 {
		log.Printf("Warning: %d users have unrecognized password hashes and cannot log in until an operator resets them", c.unknown)
	}
}

func findSortedByID(ctx context.Context, collection *mongo.Collection) *mongo.Cursor {
	// ObjectIDs grow with insertion time
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Fatalf("Failed to fetch %s: %v", collection.Name(), err)
	}
	return cursor
}

func migrateUsers(client *mongo.Client, dbName string, sqliteRepo *db.SQLiteUserRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cursor := findSortedByID(ctx, client.Database(dbName).Collection("users"))
	defer cursor.Close(ctx)

	count := 0
	var hashes hashCounts
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			log.Printf("Failed to decode user: %v", err)
			continue
		}

		if _, err := sqliteRepo.Create(ctx, &user); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				log.Printf("Skipping user %s: already migrated", user.Username)
				continue
			}
			log.Printf("Failed to create user in SQLite: %v", err)
			continue
		}
		hashes.add(user.PasswordHash)
		count++
	}
	log.Printf("Migrated %d users", count)
	hashes.report()
}

func migrateTodos(collection *mongo.Collection, sqliteRepo *db.SQLiteTodoRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cursor := findSortedByID(ctx, collection)
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		var todo models.Todo
		if err := cursor.Decode(&todo); err != nil {
			log.Printf("Failed to decode todo: %v", err)
			continue
		}

		if _, err := sqliteRepo.Create(ctx, &todo); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				continue
			}
			log.Printf("Failed to create todo in SQLite: %v", err)
			continue
		}
		count++
	}
	log.Printf("Migrated %d todos", count)
}
