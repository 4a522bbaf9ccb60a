package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/halvax/qrcheckin/checkin"
	"github.com/halvax/qrcheckin/internal/config"
	"github.com/halvax/qrcheckin/login"
	"github.com/halvax/qrcheckin/onetime"
)

// Server exposes the login and check-in surface over HTTP. It holds no
// state of its own; every request is delegated to the login service or the
// check-in orchestrator.
type Server struct {
	env        string // Environment (e.g., "DEV", "PRODUCTION")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	login      *login.Service
	checkin    *checkin.Orchestrator
	references *onetime.Issuer
	logger     zerolog.Logger
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithLogger sets the structured request logger.
func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(config config.Config, loginService *login.Service, orchestrator *checkin.Orchestrator, references *onetime.Issuer, options ...ServerOption) (*Server, error) {
	if loginService == nil {
		return nil, fmt.Errorf("[Server New] login service is required")
	}
	if orchestrator == nil {
		return nil, fmt.Errorf("[Server New] check-in orchestrator is required")
	}
	if references == nil {
		return nil, fmt.Errorf("[Server New] one-time issuer is required")
	}

	s := &Server{
		mux:        http.NewServeMux(),
		config:     config,
		login:      loginService,
		checkin:    orchestrator,
		references: references,
		logger:     zerolog.Nop(),
	}
	s.env = config.GetEnv()
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
