package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"todolist/internal/auth"
	"todolist/internal/config"
	"todolist/internal/eventlog"
	"todolist/internal/session"
	"todolist/internal/todo"
	"todolist/models"

	"github.com/gorilla/mux"
)

//go:embed templates/*.html
var templateFS embed.FS

const recentActivityLimit = 10

var pageNames = []string{"index.html", "login.html", "register.html", "todos.html", "error.html"}

type WebHandler struct {
	credentialService *auth.CredentialService
	sessionManager    *session.Manager
	accessService     *todo.AccessService
	eventLogService   *eventlog.EventLogService
	templates         map[string]*template.Template
	config            *config.Config
}

type PageData struct {
	Title     string
	User      *models.Identity
	Error     string
	Username  string
	Form      todo.NewTodo
	Todos     []*models.Todo
	EventLogs []*models.EventLog
	// Error page fields
	Message string
	Detail  string
}

func NewWebHandler(
	credentialService *auth.CredentialService,
	sessionManager *session.Manager,
	accessService *todo.AccessService,
	eventLogService *eventlog.EventLogService,
	cfg *config.Config,
) (*WebHandler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &WebHandler{
		credentialService: credentialService,
		sessionManager:    sessionManager,
		accessService:     accessService,
		eventLogService:   eventLogService,
		templates:         templates,
		config:            cfg,
	}, nil
}

func parseTemplates() (map[string]*template.Template, error) {
	funcMap := template.FuncMap{
		"formatTimeAgo": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return "Never"
			}
			duration := time.Since(*t)
			switch {
			case duration < time.Minute:
				return fmt.Sprintf("%ds ago", int(duration.Seconds()))
			case duration < time.Hour:
				return fmt.Sprintf("%dm ago", int(duration.Minutes()))
			case duration < 24*time.Hour:
				return fmt.Sprintf("%dh ago", int(duration.Hours()))
			default:
				return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
			}
		},
	}

	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcMap).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}

func (h *WebHandler) render(w http.ResponseWriter, status int, name string, data PageData) {
	tmpl, ok := h.templates[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("Template execution error (%s): %v", name, err)
	}
}

// currentUser resolves the caller for pages that render differently when
// signed in. Lookup failures are treated as anonymous.
func (h *WebHandler) currentUser(r *http.Request) *models.Identity {
	identity, ok, err := h.sessionManager.Resolve(r)
	if err != nil {
		log.Printf("Session lookup failed: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &identity
}

// Page Handlers
func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/todos", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "index.html", PageData{})
}

func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if h.currentUser(r) != nil {
			http.Redirect(w, r, "/todos", http.StatusSeeOther)
			return
		}
		h.render(w, http.StatusOK, "login.html", PageData{Title: "Log in"})
		return
	}

	// Handle POST login
	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.credentialService.Verify(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.render(w, http.StatusUnauthorized, "login.html", PageData{
				Title:    "Log in",
				Error:    "Invalid username or password",
				Username: username,
			})
			return
		}
		h.serverError(w, r, err)
		return
	}

	if _, err := h.sessionManager.Create(w, r, user); err != nil {
		h.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

func (h *WebHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if h.currentUser(r) != nil {
			http.Redirect(w, r, "/todos", http.StatusSeeOther)
			return
		}
		h.render(w, http.StatusOK, "register.html", PageData{Title: "Register"})
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	_, err := h.credentialService.Register(r.Context(), username, password)
	if err != nil {
		data := PageData{Title: "Register", Username: username}
		var validationErr *models.ValidationError
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			data.Error = "Username already exists"
			h.render(w, http.StatusConflict, "register.html", data)
		case errors.As(err, &validationErr):
			data.Error = validationErr.Error()
			h.render(w, http.StatusBadRequest, "register.html", data)
		default:
			h.serverError(w, r, err)
		}
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessionManager.Destroy(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *WebHandler) Todos(w http.ResponseWriter, r *http.Request) {
	h.renderTodos(w, r, http.StatusOK, PageData{})
}

func (h *WebHandler) renderTodos(w http.ResponseWriter, r *http.Request, status int, data PageData) {
	todos, err := h.accessService.List(r)
	if err != nil {
		h.handleTodoError(w, r, err)
		return
	}

	identity, _ := session.IdentityFromContext(r.Context())
	eventLogs, err := h.eventLogService.GetLatest(r.Context(), identity.Username, recentActivityLimit)
	if err != nil {
		log.Printf("Error getting event logs for %s: %v", identity.Username, err)
		eventLogs = []*models.EventLog{}
	}

	data.Title = "My todos"
	data.User = &identity
	data.Todos = todos
	data.EventLogs = eventLogs
	h.render(w, status, "todos.html", data)
}

func (h *WebHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	text := r.FormValue("text")
	dueDate := r.FormValue("due_date")

	if _, err := h.accessService.Create(r, text, dueDate); err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			h.renderTodos(w, r, http.StatusBadRequest, PageData{
				Error: validationErr.Error(),
				Form:  todo.NewTodo{Text: text, DueDate: dueDate},
			})
			return
		}
		h.handleTodoError(w, r, err)
		return
	}

	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

func (h *WebHandler) CompleteTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.accessService.MarkComplete(r, id); err != nil {
		h.handleTodoError(w, r, err)
		return
	}

	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

func (h *WebHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.accessService.Delete(r, id); err != nil {
		h.handleTodoError(w, r, err)
		return
	}

	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

// handleTodoError maps todo errors to responses. Forbidden and NotFound
// render the same page so other users' todos cannot be discovered.
func (h *WebHandler) handleTodoError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.Is(err, todo.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.Is(err, todo.ErrNotFound), errors.Is(err, todo.ErrForbidden):
		h.notAvailable(w, r)
	case errors.As(err, &validationErr):
		h.render(w, http.StatusBadRequest, "error.html", PageData{
			Title:   "Invalid input",
			User:    h.currentUser(r),
			Message: validationErr.Error(),
		})
	default:
		h.serverError(w, r, err)
	}
}

func (h *WebHandler) notAvailable(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, "error.html", PageData{
		Title:   "Not available",
		User:    h.currentUser(r),
		Message: "The page or todo you asked for is not available.",
	})
}

func (h *WebHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.errorPage(w, r, http.StatusInternalServerError, err)
}

// errorPage renders the generic failure page; err details only show in development
func (h *WebHandler) errorPage(w http.ResponseWriter, r *http.Request, status int, err error) {
	log.Printf("Error handling %s %s: %v", r.Method, r.URL.Path, err)

	data := PageData{
		Title:   "Something went wrong",
		Message: "The request could not be completed. Please try again.",
	}
	if h.config.IsDevelopment() {
		data.Detail = err.Error()
	}
	h.render(w, status, "error.html", data)
}

func (h *WebHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.notAvailable(w, r)
}
