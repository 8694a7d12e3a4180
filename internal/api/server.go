package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MJE43/roulette-sim/internal/games"
	"github.com/MJE43/roulette-sim/internal/monitoring"
	"github.com/MJE43/roulette-sim/internal/scan"
	"github.com/MJE43/roulette-sim/internal/session"
	"github.com/MJE43/roulette-sim/internal/store"
	"github.com/MJE43/roulette-sim/internal/table"
	"github.com/MJE43/roulette-sim/internal/wheel"
)

// Table is the live session the table routes drive. *session.Session
// implements it.
type Table interface {
	PlaceBet(ctx context.Context, b table.Bet) error
	ClearBets(ctx context.Context) (decimal.Decimal, error)
	Spin(ctx context.Context) error
	SetAutoplay(ctx context.Context, on bool) error
	State(ctx context.Context) (session.State, error)
}

// Options configures a Server. Every field is optional.
type Options struct {
	DB          store.DB
	Table       Table
	Metrics     *monitoring.Metrics
	Logger      *zap.Logger
	CORSOrigins []string
	// Wheel is the physics the live table runs. Simulate and verify use it
	// so recorded rounds replay exactly; nil means wheel.DefaultConfig.
	Wheel *wheel.Config
	// Timeout bounds each request, including waits on the session loop.
	Timeout time.Duration
}

// Server handles HTTP requests
type Server struct {
	db           store.DB
	table        Table
	metrics      *monitoring.Metrics
	logger       *zap.Logger
	wheel        *wheel.Config
	scanner      *scan.Scanner
	errorHandler *ErrorHandler
	corsOrigins  []string
	timeout      time.Duration
	startTime    time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	s := &Server{
		db:           opts.DB,
		table:        opts.Table,
		metrics:      opts.Metrics,
		logger:       logger,
		wheel:        opts.Wheel,
		scanner:      scan.NewScanner(logger.Named("scan")),
		errorHandler: NewErrorHandler(logger),
		corsOrigins:  opts.CORSOrigins,
		timeout:      opts.Timeout,
		startTime:    time.Now(),
	}
	if s.wheel != nil {
		s.scanner.Override(s.roulette())
	}

	logger.Info("api server created",
		zap.Int("games_available", len(games.List())),
		zap.Bool("database_enabled", s.db != nil),
		zap.Bool("table_enabled", s.table != nil),
		zap.String("engine_version", EngineVersion),
	)
	return s
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.RequestLogger)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(CORSMiddleware(s.corsOrigins))

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Get("/games", s.handleListGames)
		r.Post("/seed/hash", s.handleSeedHash)

		r.Route("/rounds", func(r chi.Router) {
			r.Post("/simulate", s.handleSimulate)
			r.Post("/verify", s.handleVerify)
			r.Post("/scan", s.handleScan)
			r.Get("/", s.handleListRounds)
			r.Get("/{id}", s.handleGetRound)
		})

		r.Route("/table", func(r chi.Router) {
			r.Get("/", s.handleTableState)
			r.Post("/bets", s.handlePlaceBets)
			r.Delete("/bets", s.handleClearBets)
			r.Post("/spin", s.handleSpin)
			r.Post("/autoplay", s.handleAutoplay)
		})
	})

	return r
}

// roulette returns the physical game configured like the live table.
func (s *Server) roulette() *games.RouletteGame {
	return &games.RouletteGame{Config: s.wheel}
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes a structured error response
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, errType, message string, context map[string]any) {
	b := NewError(errType, message).WithRequestID(middleware.GetReqID(r.Context()))
	for k, v := range context {
		b.WithContext(k, v)
	}
	engineErr := b.Build()
	s.errorHandler.logError(r, engineErr, status)
	s.errorHandler.writeErrorResponse(w, status, engineErr)
}
