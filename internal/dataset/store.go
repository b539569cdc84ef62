package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// Store держит текущий снапшот. Снапшот подменяется целиком под мьютексом,
// поэтому читатели видят либо старые, либо новые данные, но не смесь.
type Store struct {
	source Source
	logger *zap.Logger

	mu   sync.RWMutex
	snap *domain.Snapshot

	// reloadMu не дает двум перезагрузкам идти одновременно
	reloadMu sync.Mutex

	hooksMu  sync.Mutex
	hooks    []func(*domain.Snapshot)
	failures []func(error)

	now func() time.Time
}

func NewStore(source Source, logger *zap.Logger) *Store {
	return &Store{
		source: source,
		logger: logger.Named("dataset"),
		now:    time.Now,
	}
}

// OnSwap регистрирует callback, вызываемый после каждой успешной замены снапшота.
func (s *Store) OnSwap(fn func(*domain.Snapshot)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// OnFailure регистрирует callback на неудачную перезагрузку.
func (s *Store) OnFailure(fn func(error)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.failures = append(s.failures, fn)
}

// Reload загружает данные из источника и подменяет снапшот.
// При ошибке предыдущий снапшот остается в силе.
func (s *Store) Reload(ctx context.Context) (*domain.Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	started := s.now()
	records, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Error("dataset load failed", zap.String("source", s.source.Name()), zap.Error(err))
		s.hooksMu.Lock()
		failures := slices.Clone(s.failures)
		s.hooksMu.Unlock()
		for _, fn := range failures {
			fn(err)
		}
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	snap := &domain.Snapshot{
		Version:  Fingerprint(records),
		Source:   s.source.Name(),
		LoadedAt: s.now(),
		Records:  records,
	}

	s.mu.Lock()
	prev := s.snap
	s.snap = snap
	s.mu.Unlock()

	s.logger.Info("dataset loaded",
		zap.String("source", snap.Source),
		zap.String("version", snap.Version),
		zap.Int("records", len(records)),
		zap.Bool("changed", prev == nil || prev.Version != snap.Version),
		zap.Duration("took", s.now().Sub(started)))

	s.hooksMu.Lock()
	hooks := slices.Clone(s.hooks)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(snap)
	}

	return snap, nil
}

// Current возвращает текущий снапшот или ErrDatasetNotLoaded.
func (s *Store) Current() (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, domain.ErrDatasetNotLoaded
	}
	return s.snap, nil
}

// StartAutoReload периодически перечитывает источник до отмены контекста.
func (s *Store) StartAutoReload(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// ошибка уже залогирована в Reload, старый снапшот продолжает работать
			_, _ = s.Reload(ctx)
		}
	}
}

// Fingerprint считает версию данных как хеш содержимого в порядке строк.
// Одинаковые данные на разных инстансах дают одинаковую версию (и общий кэш).
func Fingerprint(records []domain.AccessRecord) string {
	h := sha256.New()
	for _, r := range records {
		h.Write([]byte(r.UserID))
		h.Write([]byte{0x1f})
		h.Write([]byte(r.Faculty))
		h.Write([]byte{0x1f})
		h.Write([]byte(r.Program))
		h.Write([]byte{0x1f})
		if r.HasAccesses {
			h.Write([]byte(strconv.FormatFloat(r.Accesses, 'g', -1, 64)))
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
