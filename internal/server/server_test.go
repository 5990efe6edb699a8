package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optivoo/crm/internal/auth"
	"github.com/optivoo/crm/internal/config"
	"github.com/optivoo/crm/internal/database"
	"github.com/optivoo/crm/internal/models"
	"github.com/optivoo/crm/internal/onboarding"
	"github.com/optivoo/crm/internal/tasks"
)

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func (r *recordingEnqueuer) ofType(typename string) []*asynq.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*asynq.Task
	for _, t := range r.tasks {
		if t.Type() == typename {
			out = append(out, t)
		}
	}
	return out
}

type testServer struct {
	*Server
	enq *recordingEnqueuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "api.sqlite"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	cfg := &config.Config{API: config.APIConfig{Addr: ":0", CORSOrigins: []string{"http://localhost:5173"}}}
	enq := &recordingEnqueuer{}
	s, err := newServer(cfg, db, enq, zerolog.Nop(), "test")
	require.NoError(t, err)
	return &testServer{Server: s, enq: enq}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
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
	ts.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) register(t *testing.T, email, password string) LoginResponse {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{Name: "Ana", Email: email, Password: password}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"online"`)
}

func TestJWTSecret_PersistedAcrossRestarts(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "api.sqlite"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	first, err := loadJWTSecret(db, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := loadJWTSecret(db, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	require.NoError(t, db.Model(&models.Config{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.register(t, " Ana@Example.com ", "secret1")
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.False(t, resp.User.OnboardingCompleted)

	welcome := ts.enq.ofType(tasks.TypeWelcomeEmail)
	require.Len(t, welcome, 1)
	payload, err := tasks.ParseTaskPayload(welcome[0])
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, payload.UserID)

	t.Run("duplicate email", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{Name: "B", Email: "ana@example.com", Password: "secret1"}, "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("short password", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{Name: "B", Email: "b@example.com", Password: "12345"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com", "secret1")

	w := ts.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ana@example.com", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid email or password"}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "nobody@example.com", Password: "secret1"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ANA@example.com", Password: "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = ts.do(t, http.MethodGet, "/api/auth/me", nil, resp.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var me UserDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, resp.User.ID, me.ID)
	assert.Equal(t, "Ana", me.Name)
}

func TestMe_RejectsBadTokens(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			ts.Handler().ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	t.Run("deleted user", func(t *testing.T) {
		resp := ts.register(t, "gone@example.com", "secret1")
		require.NoError(t, ts.db.Where("id = ?", resp.User.ID).Delete(&models.User{}).Error)

		w := ts.do(t, http.MethodGet, "/api/auth/me", nil, resp.Token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestForgotAndResetPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com", "secret1")

	// Unknown accounts get the same answer and no e-mail
	w := ts.do(t, http.MethodPost, "/api/auth/forgot-password", ForgotPasswordRequest{Email: "nobody@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), forgotPasswordMessage)
	assert.Empty(t, ts.enq.ofType(tasks.TypePasswordResetEmail))

	w = ts.do(t, http.MethodPost, "/api/auth/forgot-password", ForgotPasswordRequest{Email: "ana@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), forgotPasswordMessage)

	resets := ts.enq.ofType(tasks.TypePasswordResetEmail)
	require.Len(t, resets, 1)
	payload, err := tasks.ParseTaskPayload(resets[0])
	require.NoError(t, err)
	require.NotEmpty(t, payload.ResetToken)

	var stored models.PasswordReset
	require.NoError(t, ts.db.First(&stored).Error)
	assert.NotEqual(t, payload.ResetToken, stored.TokenHash, "only the hash is stored")

	w = ts.do(t, http.MethodPost, "/api/auth/reset-password", ResetPasswordRequest{Token: "bogus", Password: "newpass1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/reset-password", ResetPasswordRequest{Token: payload.ResetToken, Password: "newpass1"}, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	// Single use
	w = ts.do(t, http.MethodPost, "/api/auth/reset-password", ResetPasswordRequest{Token: payload.ResetToken, Password: "another1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ana@example.com", Password: "secret1"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ana@example.com", Password: "newpass1"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResetPassword_Expired(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ana@example.com", "secret1")

	w := ts.do(t, http.MethodPost, "/api/auth/forgot-password", ForgotPasswordRequest{Email: "ana@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	payload, err := tasks.ParseTaskPayload(ts.enq.ofType(tasks.TypePasswordResetEmail)[0])
	require.NoError(t, err)

	ts.now = func() time.Time { return time.Now().Add(auth.ResetTokenTTL + time.Minute) }

	w = ts.do(t, http.MethodPost, "/api/auth/reset-password", ResetPasswordRequest{Token: payload.ResetToken, Password: "newpass1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnboarding(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.register(t, "ana@example.com", "secret1")

	w := ts.do(t, http.MethodGet, "/api/onboarding", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/onboarding", nil, resp.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var profile onboarding.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, onboarding.DefaultProfile(), profile)

	invalid := onboarding.Profile{Sector: "mining", Tone: "formal", HoursStart: "09:00", HoursEnd: "18:00", SupportType: "chat"}
	w = ts.do(t, http.MethodPut, "/api/onboarding", invalid, resp.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "sector")

	valid := onboarding.Profile{Sector: "retail", Tone: "friendly", HoursStart: "08:30", HoursEnd: "17:00", SupportType: "both"}
	w = ts.do(t, http.MethodPut, "/api/onboarding", valid, resp.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user UserDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.True(t, user.OnboardingCompleted)

	// Saving again updates in place
	valid.Tone = "formal"
	w = ts.do(t, http.MethodPut, "/api/onboarding", valid, resp.Token)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/onboarding", nil, resp.Token)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, valid, profile)

	var count int64
	require.NoError(t, ts.db.Model(&models.BusinessProfile{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var stored models.User
	require.NoError(t, models.FindByID(ts.db, resp.User.ID, &stored))
	assert.True(t, stored.OnboardingCompleted)
	assert.NotNil(t, stored.OnboardedAt)
}

