package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
	"github.com/xela07ax/cintia-dashboard/internal/infra"
)

// maxWorkbookSize ограничивает скачиваемый файл.
const maxWorkbookSize = 64 << 20

var ErrWorkbookTooLarge = errors.New("workbook too large")

// HTTPDoer: то, что нужно от http.Client (подменяется в тестах).
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RemoteSource скачивает книгу по URL. Загрузка обернута в rate limiter,
// повторы с экспоненциальной задержкой и Circuit Breaker.
type RemoteSource struct {
	url      string
	sheet    string
	attempts uint
	timeout  time.Duration
	maxSize  int64

	client  HTTPDoer
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *zap.Logger

	onState func(name string, state gobreaker.State)
}

func NewRemoteSource(cfg infra.SourceConfig, client HTTPDoer, logger *zap.Logger) *RemoteSource {
	if client == nil {
		client = &http.Client{}
	}
	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}

	s := &RemoteSource{
		url:      RawURL(cfg.URL),
		sheet:    cfg.Sheet,
		attempts: attempts,
		timeout:  cfg.Timeout,
		maxSize:  maxWorkbookSize,
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With(zap.String("mod", "remote-source")),
	}

	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dataset-remote",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second, // через сколько CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if s.onState != nil {
				s.onState(name, to)
			}
		},
	})

	return s
}

// OnBreakerState подписывает на смену состояния Circuit Breaker (для метрик).
func (s *RemoteSource) OnBreakerState(fn func(name string, state gobreaker.State)) {
	s.onState = fn
}

func (s *RemoteSource) Name() string { return "url:" + s.url }

func (s *RemoteSource) Load(ctx context.Context) ([]domain.AccessRecord, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	res, err := s.cb.Execute(func() (interface{}, error) {
		var body []byte
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(s.attempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				return retry.BackOffDelay(n, err, config)
			}),
		)
		err := r.Do(func() error {
			var fetchErr error
			body, fetchErr = s.fetch(ctx)
			if errors.Is(fetchErr, ErrWorkbookTooLarge) {
				// повтор скачает тот же файл
				return retry.Unrecoverable(fetchErr)
			}
			if fetchErr != nil {
				s.logger.Warn("workbook download failed", zap.String("url", s.url), zap.Error(fetchErr))
			}
			return fetchErr
		})
		return body, err
	})
	if err != nil {
		return nil, fmt.Errorf("remote source %s: %w", s.url, err)
	}

	records, err := ReadXLSX(bytes.NewReader(res.([]byte)), s.sheet)
	if err != nil {
		return nil, fmt.Errorf("remote source %s: %w", s.url, err)
	}
	return records, nil
}

func (s *RemoteSource) fetch(ctx context.Context) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrWorkbookTooLarge, s.maxSize)
	}
	return body, nil
}

// RawURL превращает ссылку на страницу файла GitHub (github.com/.../blob/...)
// в ссылку на сам файл (raw.githubusercontent.com). Остальные URL не меняются.
func RawURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host != "github.com" {
		return raw
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// owner/repo/blob/ref/path...
	if len(parts) < 5 || parts[2] != "blob" {
		return raw
	}
	u.Host = "raw.githubusercontent.com"
	u.Path = "/" + strings.Join(append(parts[:2:2], parts[3:]...), "/")
	u.RawQuery = ""
	return u.String()
}
