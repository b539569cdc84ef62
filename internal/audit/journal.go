package audit

/*
Файл journal.go реализует журнал просмотров дашборда.

- Non-blocking: события уходят в буферизованный канал, запись в хранилище
  не влияет на время ответа страницы.
- Batching: события копятся в памяти и пишутся пачкой по таймеру
  или при достижении размера пачки.
- Drain Pattern: при остановке канал закрывается, воркер вычитывает остаток
  и делает финальный flush.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/infra"
)

// Storage определяет, куда физически сохраняются события
type Storage interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []ViewEvent) error
}

type Auditor interface {
	Log(event ViewEvent)
}

// NopAuditor: журнал выключен.
type NopAuditor struct{}

func (NopAuditor) Log(ViewEvent) {}

type Journal struct {
	ch     chan ViewEvent // Буфер для асинхронности
	repo   Storage
	logger *zap.Logger

	batchSize     int
	flushInterval time.Duration
	onFill        func(n int) // заполненность буфера, для метрики

	wg sync.WaitGroup

	// mu: Log шлет в канал под RLock, Stop закрывает его под Lock
	mu     sync.RWMutex
	closed bool
}

func NewJournal(repo Storage, cfg infra.AuditConfig, logger *zap.Logger) *Journal {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Journal{
		ch:            make(chan ViewEvent, cfg.BufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "audit")),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		onFill:        func(int) {},
	}
}

// OnBufferFill задает callback для наблюдения за заполненностью буфера. Вызывать до Start.
func (j *Journal) OnBufferFill(fn func(n int)) {
	j.onFill = fn
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет. Повторный вызов ничего не делает.
func (j *Journal) Stop() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	j.logger.Info("stopping audit journal: closing channel and flushing buffer...")
	close(j.ch)
	j.mu.Unlock()

	j.wg.Wait()
	j.logger.Info("audit journal stopped gracefully")
}

func (j *Journal) Log(event ViewEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.logger.Warn("audit event dropped: journal is stopping", zap.String("id", event.ID))
		return
	}

	// Load Shedding: переполненный буфер не должен тормозить запросы
	select {
	case j.ch <- event:
		j.onFill(len(j.ch))
	default:
		j.logger.Error("audit_buffer_overflow",
			zap.String("endpoint", event.Endpoint),
			zap.String("trace_id", event.TraceID),
		)
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]ViewEvent, 0, j.batchSize)
	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Используем Background, так как основной контекст может быть уже закрыт
			if err := j.repo.WriteBatch(context.Background(), batch); err != nil {
				j.logger.Error("audit flush failed", zap.Int("events", len(batch)), zap.Error(err))
			}
			batch = make([]ViewEvent, 0, j.batchSize)
		}
		j.onFill(len(j.ch))
	}

	for {
		select {
		case event, ok := <-j.ch:
			if !ok {
				// Канал закрыт в Stop(): остаток уже вычитан, финальный сброс
				flush()
				j.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= j.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// LogStore пишет события в структурированный лог, когда базы нет.
type LogStore struct {
	logger *zap.Logger
}

func NewLogStore(logger *zap.Logger) *LogStore {
	return &LogStore{logger: logger.Named("views")}
}

func (s *LogStore) WriteBatch(_ context.Context, events []ViewEvent) error {
	for _, e := range events {
		s.logger.Info("dashboard view",
			zap.String("id", e.ID),
			zap.String("trace_id", e.TraceID),
			zap.String("endpoint", e.Endpoint),
			zap.Strings("facultades", e.Faculties),
			zap.Strings("programas", e.Programs),
			zap.String("dataset_version", e.DatasetVersion),
			zap.Int("records", e.Records),
			zap.Int("professors", e.Professors),
			zap.Bool("empty", e.Empty),
			zap.Bool("cache_hit", e.CacheHit),
			zap.Int64("duration_ms", e.DurationMs),
			zap.String("error", e.Error),
			zap.Time("ts", e.Timestamp))
	}
	return nil
}
