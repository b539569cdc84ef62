package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/analytics"
	"github.com/xela07ax/cintia-dashboard/internal/audit"
	"github.com/xela07ax/cintia-dashboard/internal/cache"
	"github.com/xela07ax/cintia-dashboard/internal/domain"
	"github.com/xela07ax/cintia-dashboard/internal/filter"
	"github.com/xela07ax/cintia-dashboard/internal/infra"
	"github.com/xela07ax/cintia-dashboard/internal/metrics"
)

// SnapshotStore описывает требования к хранилищу данных
type SnapshotStore interface {
	Current() (*domain.Snapshot, error)
	Reload(ctx context.Context) (*domain.Snapshot, error)
}

// ChartRenderer рисует график по готовому представлению
type ChartRenderer interface {
	Render(w io.Writer, kind string, view domain.DashboardView) error
}

// ReloadNotifier рассылает новую версию данных другим инстансам
type ReloadNotifier interface {
	Notify(ctx context.Context, version string) error
}

// PageData содержит всё, что нужно HTML-странице: варианты фильтров и представление.
type PageData struct {
	Options domain.Options
	View    domain.DashboardView
}

type DashboardService struct {
	store    SnapshotStore
	charts   ChartRenderer
	cache    cache.ViewCache
	auditor  audit.Auditor
	notifier ReloadNotifier
	metrics  *metrics.Metrics
	bins     int
	logger   *zap.Logger
}

func NewDashboardService(
	store SnapshotStore,
	charts ChartRenderer,
	viewCache cache.ViewCache,
	auditor audit.Auditor,
	m *metrics.Metrics,
	bins int,
	logger *zap.Logger,
) *DashboardService {
	if viewCache == nil {
		viewCache = cache.NopCache{}
	}
	if auditor == nil {
		auditor = audit.NopAuditor{}
	}
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	if bins <= 0 {
		bins = analytics.DefaultBins
	}
	return &DashboardService{
		store:   store,
		charts:  charts,
		cache:   viewCache,
		auditor: auditor,
		metrics: m,
		bins:    bins,
		logger:  logger.Named("dashboard-service"),
	}
}

// SetNotifier включает рассылку сигналов о перезагрузке (только с Redis).
func (s *DashboardService) SetNotifier(n ReloadNotifier) {
	s.notifier = n
}

// Options возвращает варианты для боковой панели: все факультеты и программы
// выбранных факультетов (все программы, если факультеты не выбраны).
func (s *DashboardService) Options(ctx context.Context, sel domain.Selection) (domain.Options, error) {
	snap, err := s.store.Current()
	if err != nil {
		return domain.Options{}, err
	}
	sel = sel.Normalize()
	return domain.Options{
		Faculties: filter.Faculties(snap.Records),
		Programs:  filter.Programs(snap.Records, sel.Faculties),
	}, nil
}

// View собирает метрики и данные графиков для выборки.
func (s *DashboardService) View(ctx context.Context, sel domain.Selection) (domain.DashboardView, error) {
	return s.observe(ctx, "dashboard", sel)
}

// Page: представление вместе с вариантами фильтров.
func (s *DashboardService) Page(ctx context.Context, sel domain.Selection) (PageData, error) {
	opts, err := s.Options(ctx, sel)
	if err != nil {
		return PageData{}, err
	}
	view, err := s.observe(ctx, "page", sel)
	if err != nil {
		return PageData{}, err
	}
	return PageData{Options: opts, View: view}, nil
}

// Records возвращает отфильтрованные записи без дублей (idusuario, programa).
func (s *DashboardService) Records(ctx context.Context, sel domain.Selection) ([]domain.AccessRecord, string, error) {
	started := time.Now()
	sel = sel.Normalize()

	snap, err := s.store.Current()
	if err != nil {
		return nil, "", err
	}
	records := filter.ApplySelection(snap.Records, sel)
	summary := analytics.Summarize(records)

	s.auditor.Log(audit.ViewEvent{
		TraceID:        infra.TraceID(ctx),
		Endpoint:       "records",
		Faculties:      sel.Faculties,
		Programs:       sel.Programs,
		DatasetVersion: snap.Version,
		Records:        summary.Records,
		Professors:     summary.Professors,
		Empty:          summary.Empty,
		DurationMs:     time.Since(started).Milliseconds(),
	})
	return records, snap.Version, nil
}

// Chart пишет SVG графика kind. Для пустой выборки возвращает domain.ErrNoData.
func (s *DashboardService) Chart(ctx context.Context, w io.Writer, kind string, sel domain.Selection) error {
	view, err := s.observe(ctx, "chart:"+kind, sel)
	if err != nil {
		return err
	}
	if err := s.charts.Render(w, kind, view); err != nil {
		if !errors.Is(err, domain.ErrNoData) && !errors.Is(err, domain.ErrUnknownChart) {
			s.metrics.ErrorTotal.WithLabelValues("render").Inc()
			s.logger.Error("chart render failed", zap.String("kind", kind), zap.Error(err))
		}
		return err
	}
	return nil
}

// Reload перечитывает источник и сообщает о новой версии остальным инстансам.
func (s *DashboardService) Reload(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := s.store.Reload(ctx)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, snap.Version); err != nil {
			// Данные уже обновлены локально, остальные догонят по своему таймеру
			s.logger.Warn("reload signal delivery failed", zap.String("version", snap.Version), zap.Error(err))
		}
	}
	return snap, nil
}

// ApplyReloadSignal обрабатывает сигнал другого инстанса: перечитывает источник,
// если такая версия еще не загружена. Дальше сигнал не рассылается.
func (s *DashboardService) ApplyReloadSignal(ctx context.Context, version string) error {
	if current, err := s.store.Current(); err == nil && current.Version == version {
		return nil
	}
	s.logger.Info("reload signal received", zap.String("version", version))
	_, err := s.store.Reload(ctx)
	return err
}

// Resync перечитывает источник после переподключения к Redis:
// сигналы, пришедшие во время обрыва, потеряны.
func (s *DashboardService) Resync(ctx context.Context) error {
	snap, err := s.store.Reload(ctx)
	if err != nil {
		return fmt.Errorf("resync: %w", err)
	}
	s.logger.Info("dataset resynced", zap.String("version", snap.Version))
	return nil
}

// BuildDefaultView: представление без фильтров, для прогрева кэша.
func (s *DashboardService) BuildDefaultView(snap *domain.Snapshot) domain.DashboardView {
	return analytics.BuildView(snap, domain.Selection{}, s.bins)
}

// observe строит представление (из кэша, если есть) и пишет событие в журнал.
func (s *DashboardService) observe(ctx context.Context, endpoint string, sel domain.Selection) (domain.DashboardView, error) {
	started := time.Now()
	sel = sel.Normalize()

	view, hit, err := s.view(ctx, sel)

	event := audit.ViewEvent{
		TraceID:    infra.TraceID(ctx),
		Endpoint:   endpoint,
		Faculties:  sel.Faculties,
		Programs:   sel.Programs,
		CacheHit:   hit,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if err != nil {
		event.Error = err.Error()
		s.auditor.Log(event)
		return domain.DashboardView{}, err
	}

	event.DatasetVersion = view.DatasetVersion
	event.Records = view.Summary.Records
	event.Professors = view.Summary.Professors
	event.Empty = view.Summary.Empty
	s.auditor.Log(event)

	return view, nil
}

func (s *DashboardService) view(ctx context.Context, sel domain.Selection) (domain.DashboardView, bool, error) {
	snap, err := s.store.Current()
	if err != nil {
		return domain.DashboardView{}, false, err
	}

	key := infra.ViewCacheKey(snap.Version, sel.Key())

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		// Кэш не обязателен: при сбое Redis считаем напрямую
		s.metrics.ErrorTotal.WithLabelValues("cache").Inc()
		s.logger.Warn("view cache get failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		s.metrics.CacheRequests.WithLabelValues("hit").Inc()
		cached.Selection = sel // ключ не зависит от порядка значений
		return cached, true, nil
	}
	s.metrics.CacheRequests.WithLabelValues("miss").Inc()

	view := analytics.BuildView(snap, sel, s.bins)

	if err := s.cache.Set(ctx, key, view); err != nil {
		s.metrics.ErrorTotal.WithLabelValues("cache").Inc()
		s.logger.Warn("view cache set failed", zap.String("key", key), zap.Error(err))
	}
	return view, false, nil
}
