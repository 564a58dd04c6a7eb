package web

import (
	"net/http"

	"todolist/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *WebHandler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	// Logging wraps recovery so panics are logged and counted as 500s
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RecoveryMiddleware)

	guard := middleware.NewMiddleware(h.sessionManager, h.errorPage)

	// Web pages
	r.HandleFunc("/", h.Index).Methods("GET")
	r.HandleFunc("/login", h.Login).Methods("GET", "POST")
	r.HandleFunc("/register", h.Register).Methods("GET", "POST")
	r.HandleFunc("/logout", h.Logout).Methods("GET")

	// Todo routes require a session
	todos := r.PathPrefix("/todos").Subrouter()
	todos.Use(guard.RequireSession)
	todos.HandleFunc("", h.Todos).Methods("GET")
	todos.HandleFunc("", h.CreateTodo).Methods("POST")
	todos.HandleFunc("/{id}/complete", h.CompleteTodo).Methods("POST")
	todos.HandleFunc("/{id}", h.DeleteTodo).Methods("DELETE")
	todos.HandleFunc("/{id}/delete", h.DeleteTodo).Methods("POST")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// 404 handler
	r.NotFoundHandler = middleware.LoggingMiddleware(http.HandlerFunc(h.NotFound))

	return r
}
