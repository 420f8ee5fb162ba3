package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"operationcode_backend/internal/auth"
	"operationcode_backend/internal/config"
	"operationcode_backend/internal/jobs"
	"operationcode_backend/internal/middleware"
	"operationcode_backend/internal/onboarding"
	"operationcode_backend/internal/platform/database"
	"operationcode_backend/internal/profile"
	"operationcode_backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []onboarding.Message
}

func (m *recordingMailer) Send(_ context.Context, msg onboarding.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.sent {
		out = append(out, msg.To...)
	}
	return out
}

type testApp struct {
	server *Server
	users  *user.ServiceImplementation
	mailer *recordingMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := &config.Config{
		GinMode:                     gin.TestMode,
		ServerHost:                  "127.0.0.1",
		ServerPort:                  "0",
		ServerTimeout:               5 * time.Second,
		JWTSecretKey:                "app-test-secret",
		JWTAccessTokenExpiryMinutes: 15 * time.Minute,
		JWTRefreshTokenExpiryDays:   24 * time.Hour,
		ProfileAdminGroup:           "ProfileAdmin",
		RateLimitAuth:               "1000-M",
		JobsBackend:                 config.JobsBackendLocal,
		JobsConcurrency:             2,
		JobsLocalBuffer:             16,
		JobsFailurePolicy:           "drop",
		JobsTimeout:                 5 * time.Second,
		ExternalHTTPTimeout:         time.Second,
	}

	db, err := database.NewSQLiteMemory(uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, user.AutoMigrate(db))

	backend, err := jobs.NewBackend(cfg, logger)
	require.NoError(t, err)

	tokens := auth.NewJWTService(cfg, logger)
	users := user.NewService(user.NewGORMRepository(db), tokens, onboarding.NewFanout(backend, logger), cfg, logger)
	mailer := &recordingMailer{}
	dispatcher := onboarding.NewDispatcher(onboarding.ConfigFrom(cfg), mailer, users, nil, logger)
	worker := NewWorker(backend, dispatcher, jobs.NewDeadLetterSweepJob(backend, logger, cfg), logger)

	rateStore, err := middleware.NewRateLimitStore(cfg)
	require.NoError(t, err)

	social := auth.NewSocialService(auth.NewProviderRegistry(cfg, logger), logger)
	server, err := NewServer(cfg, logger,
		user.NewHandler(users, logger),
		profile.NewHandler(profile.NewService(profile.NewGORMRepository(db), logger), logger),
		auth.NewHandler(users, tokens, social, auth.NewInMemoryBlocklist(0), logger),
		tokens, rateStore, worker)
	require.NoError(t, err)

	require.NoError(t, worker.Start())
	t.Cleanup(func() {
		worker.Stop()
		database.CloseGORMDB(db, logger)
	})
	return &testApp{server: server, users: users, mailer: mailer}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.server.Router().ServeHTTP(w, req)
	return w
}

func (a *testApp) register(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/registration/", "", map[string]string{
		"email":      email,
		"password":   "correct-horse",
		"first_name": "Grace",
		"last_name":  "Hopper",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return accessToken(t, w)
}

func accessToken(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Data struct {
			Token struct {
				AccessToken string `json:"access_token"`
			} `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token.AccessToken)
	return resp.Data.Token.AccessToken
}

func TestServer_HealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	w := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())

	w = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServer_RegistrationSendsWelcomeEmail(t *testing.T) {
	a := newTestApp(t)

	// Chat and mailing-list collaborators are unconfigured; registration still succeeds.
	token := a.register(t, "Grace@Example.com")

	assert.Eventually(t, func() bool {
		for _, to := range a.mailer.recipients() {
			if to == "grace@example.com" {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)

	w := a.do(t, http.MethodGet, "/api/v1/auth/user/", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"grace@example.com"`)

	w = a.do(t, http.MethodGet, "/api/v1/auth/profile/", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ProfileAdminRequiresGroup(t *testing.T) {
	a := newTestApp(t)
	token := a.register(t, "member@example.com")
	a.register(t, "target@example.com")

	w := a.do(t, http.MethodGet, "/api/v1/auth/profile/admin/?email=target@example.com", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, a.users.AddUserToGroup(context.Background(), "member@example.com", "ProfileAdmin"))

	// Groups travel in the token, so a fresh login is needed.
	w = a.do(t, http.MethodPost, "/api/v1/auth/login/", "", map[string]string{
		"email":    "member@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	adminToken := accessToken(t, w)

	w = a.do(t, http.MethodGet, "/api/v1/auth/profile/admin/?email=TARGET@example.com", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodGet, "/api/v1/auth/profile/admin/", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_UnknownRouteAndMethod(t *testing.T) {
	a := newTestApp(t)

	w := a.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/json"))

	w = a.do(t, http.MethodDelete, "/api/v1/auth/user/", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_RunsEmbeddedWorker(t *testing.T) {
	tests := []struct {
		name      string
		backend   string
		runWorker bool
		want      bool
	}{
		{"local always runs", config.JobsBackendLocal, false, true},
		{"local in upper case", "LOCAL", false, true},
		{"asynq without embedded worker", config.JobsBackendAsynq, false, false},
		{"asynq in mixed case", "Asynq", false, false},
		{"asynq with embedded worker", config.JobsBackendAsynq, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{cfg: &config.Config{JobsBackend: tt.backend, JobsRunWorker: tt.runWorker}}
			assert.Equal(t, tt.want, s.runsEmbeddedWorker())
		})
	}
}
