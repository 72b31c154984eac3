package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/agentcore-ai/runtime/internal/actor"
	"github.com/agentcore-ai/runtime/internal/agent"
	"github.com/agentcore-ai/runtime/internal/checkpoint"
	"github.com/agentcore-ai/runtime/internal/eventstore"
	"github.com/agentcore-ai/runtime/internal/permission"
	"github.com/agentcore-ai/runtime/internal/provider"
	"github.com/agentcore-ai/runtime/internal/storage"
	"github.com/agentcore-ai/runtime/internal/toolrunner"
	"github.com/agentcore-ai/runtime/pkg/types"
)

// Config holds server configuration, unchanged from the teacher's shape.
type Config struct {
	Port         int
	Directory    string
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		Directory:    "",
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for SSE
	}
}

// Server is the HTTP server fronting the agent runtime core.
type Server struct {
	config    *Config
	router    *chi.Mux
	httpSrv   *http.Server
	appConfig *types.Config

	storage     *storage.Storage
	events      *eventstore.EventStore
	providerReg *provider.Registry
	agentReg    *agent.Registry
	permissions *permission.Checker
	tools       *toolrunner.Runner
	loop        *actor.Loop
	subagents   *actor.SubagentRunner
	checkpoints *checkpoint.Service
}

// New wires every component the RPC surface needs: Storage, EventStore,
// permission.Checker, ToolRunner, actor.Loop, actor.SubagentRunner, and
// CheckpointService, then builds the router over them.
func New(cfg *Config, appConfig *types.Config, deps actor.Deps, checkpoints *checkpoint.Service) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:      cfg,
		router:      r,
		appConfig:   appConfig,
		storage:     deps.Storage,
		events:      deps.Events,
		providerReg: deps.Providers,
		agentReg:    deps.Agents,
		permissions: deps.Permissions,
		tools:       deps.Tools,
		loop:        actor.NewLoop(deps),
		subagents:   actor.NewSubagentRunner(deps),
		checkpoints: checkpoints,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.router.Use(s.instanceContext)
}

// instanceContext injects the project directory into the request context,
// matching the teacher's query-param convention.
func (s *Server) instanceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dir := r.URL.Query().Get("directory")
		if dir == "" {
			dir = s.config.Directory
		}
		ctx := context.WithValue(r.Context(), contextKeyDirectory, dir)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

type contextKey string

const contextKeyDirectory contextKey = "directory"

func getDirectory(ctx context.Context) string {
	if dir, ok := ctx.Value(contextKeyDirectory).(string); ok {
		return dir
	}
	return ""
}
