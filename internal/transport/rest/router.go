package rest

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"audite/internal/metrics"
	"audite/internal/service"
	"audite/internal/transport/rest/handler"
	"audite/internal/transport/rest/middleware"
	"audite/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService        *service.AuthService
	FormService        *service.FormService
	SessionService     *service.SessionService
	SuggestionService  *service.SuggestionService
	WSHub              *ws.Hub
	Metrics            *metrics.Metrics
	CORSAllowedOrigins []string
	Logger             *slog.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	formHandler := handler.NewFormHandler(c.FormService)
	sessionHandler := handler.NewSessionHandler(c.SessionService, c.SuggestionService)
	suggestionHandler := handler.NewSuggestionHandler(c.SuggestionService)
	wsHandler := ws.NewHandler(c.WSHub, c.SessionService, c.CORSAllowedOrigins, logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSAllowedOrigins))
	r.Use(middleware.Instrument(c.Metrics))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/categories", formHandler.ListCategories).Methods("GET", "OPTIONS")
	v1.HandleFunc("/categories/{categoryId}/forms", formHandler.ListForms).Methods("GET", "OPTIONS")
	v1.HandleFunc("/forms/{formId}/questions", formHandler.VisibleQuestions).Methods("GET", "OPTIONS")

	v1.HandleFunc("/sessions", sessionHandler.Start).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}", sessionHandler.Status).Methods("GET", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/draft", sessionHandler.SaveDraft).Methods("PUT", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/submit", sessionHandler.Submit).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/suggestions", sessionHandler.Suggestions).Methods("GET", "OPTIONS")

	v1.HandleFunc("/admin/login", authHandler.Login).Methods("POST", "OPTIONS")

	// WebSocket route (public, keyed by session)
	v1.HandleFunc("/ws/sessions/{sessionId}", wsHandler.SessionWS).Methods("GET")

	// Admin routes (require admin auth)
	adminRoutes := v1.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(authMW.RequireAdmin)

	adminRoutes.HandleFunc("/categories", formHandler.CreateCategory).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/forms", formHandler.CreateForm).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/forms/{formId}/questions", formHandler.ListQuestions).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/forms/{formId}/questions", formHandler.CreateQuestion).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/forms/{formId}/analysis", formHandler.Analyze).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/questions/{questionId}", formHandler.UpdateQuestion).Methods("PUT", "OPTIONS")
	adminRoutes.HandleFunc("/questions/{questionId}", formHandler.DeleteQuestion).Methods("DELETE", "OPTIONS")
	adminRoutes.HandleFunc("/questions/{questionId}/order", formHandler.ReorderQuestion).Methods("PUT", "OPTIONS")
	adminRoutes.HandleFunc("/questions/{questionId}/check", formHandler.CheckQuestion).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/questions/{questionId}/dependents", formHandler.Dependents).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/suggestions/top", suggestionHandler.Top).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowed []string) mux.MiddlewareFunc {
	allowAll := len(allowed) == 0
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && containsOrigin(allowed, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func containsOrigin(allowed []string, origin string) bool {
	for _, o := range allowed {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
