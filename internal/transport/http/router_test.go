package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"proctored-quiz-service/internal/app"
	"proctored-quiz-service/internal/auth"
	"proctored-quiz-service/internal/camera"
	"proctored-quiz-service/internal/domain"
	"proctored-quiz-service/internal/infra/memory"
	"proctored-quiz-service/internal/metrics"
	"proctored-quiz-service/internal/notify"
)

type fixture struct {
	server   *httptest.Server
	accounts *app.AccountService
	quiz     *app.QuizService
	store    *memory.Store
	clock    *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clock := &testClock{now: time.Now()}
	store := memory.NewStore()
	monitor := camera.NewMonitorWithClock(5*time.Second, clock.Now)
	dispatcher := notify.NewDispatcher(notify.NewLogSender(logger), time.Second, logger)
	t.Cleanup(dispatcher.Close)
	reg := prometheus.NewRegistry()

	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"c-basics": {
			ID: "c-basics",
			Questions: []domain.Question{
				{ID: "Q1", Prompt: "Which data type is used to store a single character in C?", Options: []string{"char", "int", "float", "double"}, Answer: "char"},
				{ID: "Q2", Prompt: "What is the output of 5 / 2 in C if both operands are integers?", Options: []string{"2.5", "2", "3", "Error"}, Answer: "2"},
			},
		},
	}), time.Minute)

	quiz := app.NewQuizService(app.QuizDeps{
		Users:    store,
		Ledger:   store,
		Results:  store,
		Sessions: memory.NewSessionStore(),
		Quizzes:  quizzes,
		Presence: memory.NewPresenceSet(),
		Camera:   monitor,
		Notifier: dispatcher,
	}, app.QuizOptions{DefaultQuizID: "c-basics", Clock: clock.Now, Logger: logger, Metrics: metrics.New(reg)})
	accounts := app.NewAccountService(store, memory.NewOTPStore(), dispatcher, app.AccountOptions{HashCost: bcrypt.MinCost, Logger: logger})
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	router := NewRouter(RouterConfig{
		API:      NewAPIHandler(quiz, accounts, tokens, logger),
		Camera:   NewCameraHandler(quiz, monitor, 20*time.Millisecond, logger),
		Tokens:   tokens,
		Gatherer: reg,
		Log:      logger,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &fixture{server: server, accounts: accounts, quiz: quiz, store: store, clock: clock}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.server.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := f.do(t, "POST", "/api/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Token
}

func (f *fixture) professor(t *testing.T) string {
	t.Helper()
	_, err := f.accounts.Register(context.Background(), app.RegisterRequest{Username: "prof", Password: "secret", Role: domain.RoleProfessor})
	require.NoError(t, err)
	return f.login(t, "prof", "secret")
}

func TestRegisterLoginAndValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/api/register", "", map[string]string{"username": "alice", "password": "pw12"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, "POST", "/api/register", "", map[string]string{"username": "alice", "password": "pw12"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, "POST", "/api/register", "", map[string]string{"username": "al"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "required", body.Fields["Password"])

	resp = f.do(t, "POST", "/api/login", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	user, err := f.store.Lookup(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, user.Role)
}

func TestQuizFlowOverHTTP(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/register", "", map[string]string{"username": "alice", "password": "pw12"})
	token := f.login(t, "alice", "pw12")

	resp := f.do(t, "POST", "/api/quiz/begin", token, map[string]string{"section": "A", "usn": "1XY21CS001"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var begun beginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&begun))
	assert.Len(t, begun.Questions, 2)
	assert.EqualValues(t, 25*60, begun.RemainingSeconds)
	raw, _ := json.Marshal(begun)
	assert.NotContains(t, string(raw), "answer\"", "correct answers must not leak")

	resp = f.do(t, "PUT", "/api/quiz/answers", token, map[string]string{"questionId": "Q1", "option": "char"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, "PUT", "/api/quiz/answers", token, map[string]string{"questionId": "Q1", "option": "bool"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, "POST", "/api/quiz/submit", token, map[string]bool{"auto": false})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "incomplete")

	resp = f.do(t, "PUT", "/api/quiz/answers", token, map[string]string{"questionId": "Q2", "option": "2.5"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, "POST", "/api/quiz/submit", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "camera")

	f.quiz.ObserveCamera(context.Background(), "alice", true)
	f.clock.advance(90 * time.Second)
	resp = f.do(t, "POST", "/api/quiz/submit", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var score scoreResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&score))
	assert.Equal(t, scoreResponse{Score: 1, Total: 2, ElapsedSeconds: 90}, score)

	resp = f.do(t, "GET", "/api/quiz/remaining", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProfessorRoutes(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/register", "", map[string]string{"username": "alice", "password": "pw12"})
	student := f.login(t, "alice", "pw12")
	prof := f.professor(t)

	resp := f.do(t, "POST", "/api/quiz/begin", student, map[string]string{"section": "B"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, "GET", "/api/professor/active", student, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = f.do(t, "POST", "/api/quiz/begin", prof, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, "GET", "/api/professor/active", prof, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var active activeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&active))
	assert.Equal(t, []string{"alice"}, active.Active)

	f.quiz.ObserveCamera(context.Background(), "alice", true)
	resp = f.do(t, "POST", "/api/quiz/submit", student, map[string]bool{"auto": true})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "client cannot claim a timed-out submission")
	resp = f.do(t, "GET", "/api/professor/active", prof, nil)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&active))
	assert.Equal(t, []string{"alice"}, active.Active)

	f.clock.advance(26 * time.Minute)
	resp = f.do(t, "POST", "/api/quiz/submit", student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var score scoreResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&score))
	assert.Equal(t, scoreResponse{Score: 0, Total: 2, ElapsedSeconds: 26 * 60}, score)

	resp = f.do(t, "GET", "/api/professor/results.csv?section=B", prof, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="results_B.csv"`, resp.Header.Get("Content-Disposition"))
	data, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "alice,"))

	resp = f.do(t, "GET", "/api/professor/results?section=../x", prof, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, "GET", "/api/quiz/remaining", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = f.do(t, "GET", "/api/quiz/remaining", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.do(t, "POST", "/api/register", "", map[string]string{"username": "alice", "password": "pw12"})
	token := f.login(t, "alice", "pw12")
	f.do(t, "POST", "/api/quiz/begin", token, nil)

	resp = f.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), `quiz_begins_total{outcome="ok"} 1`)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrAttemptsExhausted:   http.StatusTooManyRequests,
		domain.ErrChangeLimitExceeded: http.StatusTooManyRequests,
		domain.ErrCameraRequired:      http.StatusUnprocessableEntity,
		domain.ErrDuplicateUsername:   http.StatusConflict,
		domain.ErrSessionNotFound:     http.StatusNotFound,
		domain.ErrForbidden:           http.StatusForbidden,
		io.ErrUnexpectedEOF:           http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
