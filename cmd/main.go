package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"todolist/db"
	"todolist/internal/auth"
	"todolist/internal/config"
	"todolist/internal/eventlog"
	"todolist/internal/session"
	"todolist/internal/todo"
	"todolist/internal/web"

	"go.mongodb.org/mongo-driver/mongo"
)

// Global loggers for different output streams
var (
	infoLogger  = log.New(os.Stdout, "", log.LstdFlags)
	errorLogger = log.New(os.Stderr, "", log.LstdFlags)
)

func main() {
	infoLogger.Printf("Starting todo server - Process ID: %d", os.Getpid())
	infoLogger.Printf("Runtime: %s/%s, Go version: %s", runtime.GOOS, runtime.GOARCH, runtime.Version())

	cfg, err := config.LoadConfig()
	if err != nil {
		errorLogger.Fatalf("Failed to load configuration: %v", err)
	}

	// A storage failure at startup is fatal: refuse to run degraded
	repoFactory, err := connectDatabase(cfg)
	if err != nil {
		errorLogger.Fatalf("Database connection error: %v", err)
	}

	// Create repositories
	userRepo := repoFactory.NewUserRepository()
	todoRepo := repoFactory.NewTodoRepository()
	sessionRepo := repoFactory.NewSessionRepository()
	eventLogRepo := repoFactory.NewEventLogRepository()

	// Initialize services with repositories
	eventLogService := eventlog.NewEventLogService(eventLogRepo)
	credentialService := auth.NewCredentialService(userRepo, eventLogService)
	sessionManager := session.NewManager(cfg, sessionRepo, userRepo, eventLogService)
	todoService := todo.NewTodoService(todoRepo, eventLogService)
	accessService := todo.NewAccessService(sessionManager, todoService)

	webHandler, err := web.NewWebHandler(credentialService, sessionManager, accessService, eventLogService, cfg)
	if err != nil {
		errorLogger.Fatalf("Failed to initialize web handlers: %v", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           webHandler.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		infoLogger.Printf("Server is starting on port %s (%s mode)...", cfg.Port, cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	runErr := waitForShutdown(server, serverErr)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repoFactory.Close(closeCtx); err != nil {
		errorLogger.Printf("Failed to close database: %v", err)
	}
	if runErr != nil {
		errorLogger.Fatalf("Server stopped with error: %v", runErr)
	}
	infoLogger.Println("[SUCCESS] Services stopped")
}

func connectDatabase(cfg *config.Config) (*db.RepositoryFactory, error) {
	var sqliteDB *sql.DB
	var mongoClient *mongo.Client

	switch cfg.DatabaseType {
	case config.MongoDB:
		infoLogger.Println("Using MongoDB database")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		client, err := db.ConnectToMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureMongoIndexes(ctx, client, cfg.DatabaseName); err != nil {
			client.Disconnect(context.Background())
			return nil, err
		}
		mongoClient = client
	default:
		infoLogger.Println("Using SQLite database")
		conn, err := db.ConnectToSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.InitializeSchema(conn); err != nil {
			conn.Close()
			return nil, err
		}
		sqliteDB = conn
	}

	return db.NewRepositoryFactory(sqliteDB, mongoClient, cfg.DatabaseName), nil
}

func waitForShutdown(server *http.Server, serverErr <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-stop:
		infoLogger.Printf("Received shutdown signal: %v", sig)
	case err, ok := <-serverErr:
		if ok && err != nil {
			runErr = err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	infoLogger.Println("Shutting down the server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		errorLogger.Printf("Server Shutdown error: %v", err)
	}
	return runErr
}
