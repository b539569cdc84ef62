package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/console/handler"
	"github.com/xela07ax/cintia-dashboard/internal/domain"
	"github.com/xela07ax/cintia-dashboard/internal/infra"
	"github.com/xela07ax/cintia-dashboard/internal/infra/auth"
	"github.com/xela07ax/cintia-dashboard/internal/metrics"
)

type DashboardServer struct {
	router  *chi.Mux
	logger  *zap.Logger
	metrics *metrics.Metrics

	// Проверка RS256 токенов. nil: авторизация выключена,
	// перезагрузка данных доступна без токена.
	authValidator auth.TokenValidator

	// Обработчики
	authHandler *handler.AuthHandler      // /auth/token
	dashHandler *handler.DashboardHandler // /, /api/v1/*, /charts/*
}

// NewDashboardServer собирает роутер дашборда. authValidator и authH могут быть nil.
func NewDashboardServer(
	logger *zap.Logger,
	m *metrics.Metrics,
	authValidator auth.TokenValidator,
	authH *handler.AuthHandler,
	dashH *handler.DashboardHandler,
) *DashboardServer {
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	s := &DashboardServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("dashboard-api"),
		metrics:       m,
		authValidator: authValidator,
		authHandler:   authH,
		dashHandler:   dashH,
	}

	s.routes()
	return s
}

func (s *DashboardServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(infra.TracingMiddleware)
	r.Use(s.metrics.Middleware)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r.Get("/", s.dashHandler.Page)
		r.Get("/charts/{kind}.svg", s.dashHandler.GetChart)

		r.Get("/api/v1/options", s.dashHandler.GetOptions)
		r.Get("/api/v1/dashboard", s.dashHandler.GetDashboard)
		r.Get("/api/v1/records", s.dashHandler.GetRecords)

		if s.authHandler != nil {
			r.Post("/auth/token", s.authHandler.Login)
		}
	})

	// --- 3. АДМИНИСТРИРОВАНИЕ (RS256 токен со scope "reload", если auth включен) ---
	r.Group(func(r chi.Router) {
		if s.authValidator != nil {
			r.Use(auth.NewMiddleware(s.authValidator, domain.ScopeReload, s.logger))
		}
		r.Post("/api/v1/dataset/reload", s.dashHandler.Reload)
	})
}

// requestLogger пишет одну строку на запрос в zap (вместо middleware.Logger).
func (s *DashboardServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("took", time.Since(start)))
	})
}

// ServeHTTP позволяет использовать DashboardServer как стандартный http.Handler
func (s *DashboardServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
