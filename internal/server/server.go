package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rumor-ml/commons.systems/smsparse/internal/assemble"
	"github.com/rumor-ml/commons.systems/smsparse/internal/catalog"
	"github.com/rumor-ml/commons.systems/smsparse/internal/config"
	"github.com/rumor-ml/commons.systems/smsparse/internal/dates"
	"github.com/rumor-ml/commons.systems/smsparse/internal/handlers"
	"github.com/rumor-ml/commons.systems/smsparse/internal/ingest"
	"github.com/rumor-ml/commons.systems/smsparse/internal/middleware"
	"github.com/rumor-ml/commons.systems/smsparse/internal/rules"
	"github.com/rumor-ml/commons.systems/smsparse/internal/store"
)

// Server is the SMS ingestion API server.
type Server struct {
	fs  *store.Firestore
	mux *http.ServeMux
}

// New creates a server wired to Firestore per the given config.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	fs, err := store.NewFirestore(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}

	engine, err := loadRules(cfg)
	if err != nil {
		fs.Close()
		return nil, err
	}

	assembler, err := assemble.New(engine, catalog.New(nil), cfg.DefaultCurrency)
	if err != nil {
		fs.Close()
		return nil, err
	}

	validator, err := dates.NewValidator(dates.SystemClock{}, cfg.MaxAge(), cfg.MaxSkew())
	if err != nil {
		fs.Close()
		return nil, err
	}

	ingestor, err := ingest.New(fs, validator, assembler, ingest.Options{
		PersistTimeout: cfg.PersistTimeout,
		Logger:         logger,
	})
	if err != nil {
		fs.Close()
		return nil, err
	}

	s := &Server{fs: fs, mux: http.NewServeMux()}
	s.setupRoutes(ingestor, logger)
	return s, nil
}

func loadRules(cfg *config.Config) (*rules.Engine, error) {
	if cfg.RulesFile != "" {
		return rules.LoadFromFile(cfg.RulesFile)
	}
	return rules.LoadEmbedded()
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(ingestor *ingest.Ingestor, logger *slog.Logger) {
	// Health check (no auth required)
	s.mux.HandleFunc("/health", handlers.HealthCheck)

	apiHandler := handlers.NewAPIHandler(ingestor, s.fs, logger)
	authMiddleware := middleware.NewAuthMiddleware(s.fs.Auth)

	s.mux.Handle("/api/sms", authMiddleware.RequireAuth(http.HandlerFunc(apiHandler.IngestSMS)))
	s.mux.Handle("/api/transactions", authMiddleware.RequireAuth(http.HandlerFunc(apiHandler.GetTransactions)))
	s.mux.Handle("/api/outcomes", authMiddleware.RequireAuth(http.HandlerFunc(apiHandler.GetOutcomes)))
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return middleware.CORS(s.mux)
}

// Close closes the server resources
func (s *Server) Close() error {
	return s.fs.Close()
}
