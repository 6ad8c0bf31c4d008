package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fdg312/fitclub/internal/auth"
	"github.com/fdg312/fitclub/internal/blob"
	"github.com/fdg312/fitclub/internal/config"
	"github.com/fdg312/fitclub/internal/exports"
	"github.com/fdg312/fitclub/internal/foodproducts"
	"github.com/fdg312/fitclub/internal/members"
	"github.com/fdg312/fitclub/internal/memberships"
	"github.com/fdg312/fitclub/internal/metrics"
	"github.com/fdg312/fitclub/internal/nutritionplans"
	"github.com/fdg312/fitclub/internal/plandrafts"
	"github.com/fdg312/fitclub/internal/storage"
	"github.com/fdg312/fitclub/internal/storage/memory"
	"github.com/fdg312/fitclub/internal/storage/postgres"
	"github.com/fdg312/fitclub/internal/usernutritionplans"
	"github.com/sirupsen/logrus"
)

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	logger         logrus.FieldLogger
	mux            *http.ServeMux
	storage        storage.Storage
	metrics        *metrics.Metrics
	drafts         *plandrafts.Store
	authMiddleware *auth.Middleware
	httpServer     *http.Server
	stopJanitor    context.CancelFunc
}

// New создаёт HTTP сервер со всеми зависимостями и запускает уборщик черновиков
func New(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*Server, error) {
	s := &Server{
		config:  cfg,
		logger:  logger,
		mux:     http.NewServeMux(),
		metrics: metrics.New(),
	}

	s.initStorage(ctx)

	blobStore, blobMode, err := blob.NewBlobStore(ctx, cfg.Blob, logger)
	if err != nil {
		s.storage.Close()
		return nil, err
	}

	s.drafts = plandrafts.NewStore(cfg.DraftTTL, s.metrics, logger.WithField("component", "plandrafts"))
	janitorCtx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	go s.drafts.RunJanitor(janitorCtx, cfg.DraftSweepInterval)

	s.routes(blobStore, blobMode)
	return s, nil
}

// initStorage инициализирует storage (Memory или Postgres)
func (s *Server) initStorage(ctx context.Context) {
	if s.config.DatabaseURL == "" {
		s.logger.Info("using in-memory storage")
		s.storage = memory.New()
		return
	}

	pg, err := postgres.New(ctx, s.config.DatabaseURL)
	if err != nil {
		s.logger.WithError(err).Warn("postgres unavailable, falling back to in-memory storage")
		s.storage = memory.New()
		return
	}
	s.logger.Info("postgres connected")
	s.storage = pg
}

// routes регистрирует маршруты
func (s *Server) routes(blobStore blob.Store, blobMode string) {
	cfg := s.config
	admin := func(h http.HandlerFunc) http.HandlerFunc { return auth.RequireRole(h, storage.RoleAdmin) }

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	// Auth и участники
	authService := auth.NewService(cfg, s.storage)
	authHandler := auth.NewHandlers(authService, s.logger)
	s.authMiddleware = auth.NewMiddleware(cfg, authService, s.logger)
	s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)

	memberService := members.NewService(s.storage)
	memberHandler := members.NewHandler(memberService, s.logger)
	s.mux.HandleFunc("GET /v1/me", memberHandler.HandleGetMe)
	s.mux.HandleFunc("PATCH /v1/me", memberHandler.HandlePatchMe)
	s.mux.HandleFunc("GET /v1/admin/members", admin(memberHandler.HandleList))
	s.mux.HandleFunc("PUT /v1/admin/members/{id}/role", admin(memberHandler.HandleSetRole))

	// Тарифы
	membershipService := memberships.NewService(s.storage, s.logger)
	membershipHandler := memberships.NewHandler(membershipService, s.logger)
	s.mux.HandleFunc("GET /v1/memberships", membershipHandler.HandleList)
	s.mux.HandleFunc("GET /v1/memberships/{id}", membershipHandler.HandleGet)
	s.mux.HandleFunc("POST /v1/memberships", admin(membershipHandler.HandleCreate))
	s.mux.HandleFunc("PUT /v1/memberships/{id}", admin(membershipHandler.HandleUpdate))
	s.mux.HandleFunc("POST /v1/memberships/{id}/subscribe", membershipHandler.HandleSubscribe)

	// Каталог продуктов
	productService := foodproducts.NewService(s.storage)
	productHandler := foodproducts.NewHandler(productService, s.logger)
	s.mux.HandleFunc("GET /v1/food-products", productHandler.HandleList)
	s.mux.HandleFunc("POST /v1/food-products", productHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/food-products/{id}", productHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/food-products/{id}", productHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/food-products/{id}", productHandler.HandleDelete)

	// Планы питания
	limits := nutritionplans.Limits{
		MaxDays:         cfg.MaxPlanDays,
		MaxMealsPerDay:  cfg.MaxMealsPerDay,
		MaxItemsPerMeal: cfg.MaxItemsPerMeal,
	}
	planService := nutritionplans.NewService(nutritionplans.Options{
		Storage:        s.storage,
		Products:       productService,
		Memberships:    memberService,
		Limits:         limits,
		PersistTimeout: cfg.PersistTimeout,
		Metrics:        s.metrics,
		Logger:         s.logger.WithField("component", "nutritionplans"),
	})
	planHandler := nutritionplans.NewHandler(planService, s.logger)
	s.mux.HandleFunc("GET /v1/nutrition-plans", planHandler.HandleList)
	s.mux.HandleFunc("POST /v1/nutrition-plans", planHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/nutrition-plans/{id}", planHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/nutrition-plans/{id}", planHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/nutrition-plans/{id}", planHandler.HandleDelete)
	s.mux.HandleFunc("GET /v1/nutrition-plans/{id}/summary", planHandler.HandleSummary)
	s.mux.HandleFunc("DELETE /v1/nutrition-plans/{id}/days/{day}", planHandler.HandleRemoveDay)
	s.mux.HandleFunc("DELETE /v1/nutrition-plans/{id}/days/{day}/meals/{meal}", planHandler.HandleRemoveMeal)
	s.mux.HandleFunc("DELETE /v1/nutrition-plans/{id}/days/{day}/meals/{meal}/items/{item}", planHandler.HandleRemoveItem)

	// Черновики редактора
	draftService := plandrafts.NewService(s.drafts, planService, productService, limits, s.metrics, s.logger)
	draftHandler := plandrafts.NewHandler(draftService, s.logger)
	s.mux.HandleFunc("POST /v1/plan-drafts", draftHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/plan-drafts/{id}", draftHandler.HandleGet)
	s.mux.HandleFunc("POST /v1/plan-drafts/{id}/ops", draftHandler.HandleApply)
	s.mux.HandleFunc("POST /v1/plan-drafts/{id}/submit", draftHandler.HandleSubmit)
	s.mux.HandleFunc("DELETE /v1/plan-drafts/{id}", draftHandler.HandleDiscard)

	// Персональные планы
	unpService := usernutritionplans.NewService(s.storage, s.logger)
	unpHandler := usernutritionplans.NewHandler(unpService, s.logger)
	s.mux.HandleFunc("POST /v1/user-nutrition-plans/calculate", unpHandler.HandleCalculate)
	s.mux.HandleFunc("POST /v1/user-nutrition-plans", unpHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/user-nutrition-plans", unpHandler.HandleList)
	s.mux.HandleFunc("GET /v1/user-nutrition-plans/{id}", unpHandler.HandleGet)
	s.mux.HandleFunc("POST /v1/user-nutrition-plans/{id}/pause", unpHandler.HandlePause)
	s.mux.HandleFunc("POST /v1/user-nutrition-plans/{id}/activate", unpHandler.HandleActivate)
	s.mux.HandleFunc("DELETE /v1/user-nutrition-plans/{id}", unpHandler.HandleDelete)

	// Выгрузки
	exportService := exports.NewService(exports.Options{
		Storage:         s.storage,
		Plans:           planService,
		Blob:            blobStore,
		Mode:            blobMode,
		PresignTTL:      cfg.Blob.S3.PresignTTLSeconds,
		PublicBaseURL:   cfg.Blob.S3.PublicBaseURL,
		PreferPublicURL: cfg.Blob.S3.PreferPublicURL,
		MaxDays:         cfg.ExportMaxDays,
		Metrics:         s.metrics,
		Logger:          s.logger.WithField("component", "exports"),
	})
	exportHandler := exports.NewHandlers(exportService, cfg.ExportsPerPage, s.logger)
	s.mux.HandleFunc("POST /v1/nutrition-plans/{id}/exports", exportHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/exports", exportHandler.HandleList)
	s.mux.HandleFunc("GET /v1/exports/{id}/download", exportHandler.HandleDownload)
	s.mux.HandleFunc("DELETE /v1/exports/{id}", exportHandler.HandleDelete)
}

// Handler собирает цепочку middleware (внешний первым):
// Metrics → CORS → Rate Limit → Auth → Router
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = s.authMiddleware.RequireAuth(handler)
	handler = RateLimitMiddleware(s.config, s.logger, s.metrics, handler)
	handler = CORSMiddleware(s.config, handler)
	handler = s.metrics.InstrumentHandler(handler)
	return handler
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Start запускает HTTP сервер и блокируется до Shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithField("addr", addr).Info("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает приём запросов, уборщик черновиков и закрывает storage
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close освобождает ресурсы без остановки HTTP сервера
func (s *Server) Close() error {
	if s.stopJanitor != nil {
		s.stopJanitor()
	}
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
