package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xela07ax/cintia-dashboard/internal/charts"
	"github.com/xela07ax/cintia-dashboard/internal/console/handler"
	"github.com/xela07ax/cintia-dashboard/internal/console/service"
	"github.com/xela07ax/cintia-dashboard/internal/dataset"
	"github.com/xela07ax/cintia-dashboard/internal/domain"
	"github.com/xela07ax/cintia-dashboard/internal/infra"
	"github.com/xela07ax/cintia-dashboard/internal/infra/auth"
	"github.com/xela07ax/cintia-dashboard/internal/metrics"
)

type memSource struct {
	records []domain.AccessRecord
}

func (s *memSource) Load(context.Context) ([]domain.AccessRecord, error) { return s.records, nil }
func (s *memSource) Name() string                                        { return "memory" }

func rec(id, faculty, program string, v float64) domain.AccessRecord {
	return domain.AccessRecord{UserID: id, Faculty: faculty, Program: program, Accesses: v, HasAccesses: true}
}

type env struct {
	srv     *DashboardServer
	metrics *metrics.Metrics
}

func newEnv(t *testing.T, withAuth bool) *env {
	t.Helper()
	logger := zap.NewNop()

	store := dataset.NewStore(&memSource{records: []domain.AccessRecord{
		rec("1", "Ingenieria", "Sistemas", 10),
		rec("1", "Ingenieria", "Sistemas", 12),
		rec("2", "Ingenieria", "Civil", 8),
		rec("3", "Artes", "Musica", 3),
	}}, logger)
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	m := metrics.NewMetrics(nil)
	svc := service.NewDashboardService(store, charts.NewRenderer(640, 360), nil, nil, m, 10, logger)
	e := &env{metrics: m}

	var validator auth.TokenValidator
	var authH *handler.AuthHandler
	if withAuth {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
		require.NoError(t, err)

		users := service.NewConfigUsers([]infra.UserConfig{
			{Username: "admin", PasswordHash: string(hash), Scopes: []string{domain.ScopeReload}},
		})
		authH = handler.NewAuthHandler(service.NewAuthService(users, key, time.Hour))
		validator = auth.NewVerifier(&key.PublicKey)
	}

	e.srv = NewDashboardServer(logger, m, validator, authH, handler.NewDashboardHandler(svc, logger))
	return e
}

func (e *env) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	rr := httptest.NewRecorder()
	e.srv.ServeHTTP(rr, req)
	return rr
}

func TestServer_PublicRoutes(t *testing.T) {
	e := newEnv(t, false)

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/health", "", nil).Code)

	page := e.do(http.MethodGet, "/?facultad=Artes", "", nil)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Ingreso a Cintia")
	assert.NotEmpty(t, page.Header().Get(infra.TraceHeader))

	dash := e.do(http.MethodGet, "/api/v1/dashboard?facultad=Ingenieria", "", nil)
	require.Equal(t, http.StatusOK, dash.Code)
	assert.Contains(t, dash.Body.String(), `"profesores":2`)

	chart := e.do(http.MethodGet, "/charts/bar.svg", "", nil)
	require.Equal(t, http.StatusOK, chart.Code)
	assert.Equal(t, "image/svg+xml", chart.Header().Get("Content-Type"))

	empty := e.do(http.MethodGet, "/charts/box.svg?facultad=Artes&programa=Civil", "", nil)
	assert.Equal(t, http.StatusNotFound, empty.Code)

	// auth выключен: перезагрузка открыта, /auth/token не зарегистрирован
	assert.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/v1/dataset/reload", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/auth/token", "{}", nil).Code)
}

func TestServer_SingleFacultyCharts(t *testing.T) {
	e := newEnv(t, false)

	// ось X у ящиков и столбиков подписана факультетом, легенда гистограммы: программой
	for kind, label := range map[string]string{
		charts.KindBox:       "Artes",
		charts.KindBar:       "Artes",
		charts.KindHistogram: "Musica",
	} {
		rr := e.do(http.MethodGet, "/charts/"+kind+".svg?facultad=Artes", "", nil)
		require.Equal(t, http.StatusOK, rr.Code, kind)
		assert.Contains(t, rr.Body.String(), label, kind)
	}
}

func TestServer_TraceIDIsPropagated(t *testing.T) {
	e := newEnv(t, false)

	rr := e.do(http.MethodGet, "/api/v1/options", "", http.Header{infra.TraceHeader: []string{"trace-42"}})

	assert.Equal(t, "trace-42", rr.Header().Get(infra.TraceHeader))
}

func TestServer_MetricsUseRoutePattern(t *testing.T) {
	e := newEnv(t, false)

	e.do(http.MethodGet, "/charts/bar.svg", "", nil)
	e.do(http.MethodGet, "/charts/histogram.svg?programa=Sistemas", "", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(e.metrics.TotalRequests.WithLabelValues("/charts/{kind}.svg", http.MethodGet)))
}

func TestServer_ReloadRequiresToken(t *testing.T) {
	e := newEnv(t, true)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/v1/dataset/reload", "", nil).Code)

	login := e.do(http.MethodPost, "/auth/token", `{"username":"admin","password":"s3cret"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)

	var token domain.TokenResponse
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &token))
	rr := e.do(http.MethodPost, "/api/v1/dataset/reload", "", http.Header{"Authorization": []string{"Bearer " + token.AccessToken}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"records":4`)

	// чтение данных токена не требует
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v1/dashboard", "", nil).Code)
}
