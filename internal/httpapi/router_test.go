package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apartments "github.com/khaledahmed0918-sys/Apartments"
	"github.com/khaledahmed0918-sys/Apartments/delivery"
	"github.com/khaledahmed0918-sys/Apartments/internal/clienttoken"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool                 `json:"success"`
	Kind    apartments.ErrorKind `json:"kind"`
	Message string               `json:"message"`
	Fields  map[string]string    `json:"fields"`
	Data    json.RawMessage      `json:"data"`
}

type testAPI struct {
	handler  http.Handler
	mr       *miniredis.Miniredis
	mail     *delivery.Recorder
	registry *prometheus.Registry
	tokens   *clienttoken.Manager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := apartments.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	mail := &delivery.Recorder{}
	engine, err := apartments.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDeliverer(mail).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	tokens, err := clienttoken.NewManager(clienttoken.Config{
		TTL:    time.Hour,
		Key:    []byte(strings.Repeat("k", 32)),
		Issuer: "apartments-test",
	}, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	h, err := NewRouter(Deps{
		Service:    engine,
		Tokens:     tokens,
		Registerer: reg,
		Metrics:    http.NotFoundHandler(),
	})
	require.NoError(t, err)

	return &testAPI{handler: h, mr: mr, mail: mail, registry: reg, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *testAPI) client(t *testing.T) string {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/v1/auth/client", "", nil)
	require.Equal(t, http.StatusOK, status)

	var out clientTokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.Token)
	require.NotEmpty(t, out.ClientID)
	return out.Token
}

func (a *testAPI) code(t *testing.T, email string) string {
	t.Helper()
	msg, ok := a.mail.Last(email)
	require.True(t, ok, "no code delivered to %s", email)
	return msg.Code
}

func (a *testAPI) register(t *testing.T, token, email, password string) {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/v1/auth/register", token, map[string]any{
		"name": []string{"Amer", "Saleh"}, "email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	var p apartments.Pending
	require.NoError(t, json.Unmarshal(env.Data, &p))

	status, env = a.do(t, http.MethodPost, "/v1/auth/register/verify", token, map[string]any{
		"pending": p, "code": a.code(t, email),
	})
	require.Equal(t, http.StatusOK, status, env.Message)
}

func TestClientTokenRequired(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(t, http.MethodGet, "/v1/auth/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, _ = api.do(t, http.MethodGet, "/v1/auth/session", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegistrationAndSession(t *testing.T) {
	api := newTestAPI(t)
	token := api.client(t)

	status, env := api.do(t, http.MethodGet, "/v1/auth/session", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apartments.KindNotFound, env.Kind)

	api.register(t, token, "a@x.com", "p1")

	status, env = api.do(t, http.MethodGet, "/v1/auth/session", token, nil)
	require.Equal(t, http.StatusOK, status)
	var user apartments.SessionUser
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, []string{"Amer", "Saleh"}, user.Name)

	other := api.client(t)
	status, _ = api.do(t, http.MethodGet, "/v1/auth/session", other, nil)
	assert.Equal(t, http.StatusNotFound, status, "sessions are per client")

	status, _ = api.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(t, http.MethodGet, "/v1/auth/session", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRegistrationErrors(t *testing.T) {
	api := newTestAPI(t)
	token := api.client(t)

	status, env := api.do(t, http.MethodPost, "/v1/auth/register", token, map[string]any{
		"name": []string{"Amer", ""}, "email": "", "password": "p1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apartments.KindValidation, env.Kind)
	assert.Contains(t, env.Fields, "name[1]")
	assert.Contains(t, env.Fields, "email")

	status, env = api.do(t, http.MethodPost, "/v1/auth/register", token, map[string]any{
		"name": []string{"Amer"}, "email": "a@x.com", "password": "p1",
	})
	require.Equal(t, http.StatusOK, status)
	var p apartments.Pending
	require.NoError(t, json.Unmarshal(env.Data, &p))

	status, env = api.do(t, http.MethodPost, "/v1/auth/register/verify", token, map[string]any{
		"pending": p, "code": "000000",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, apartments.KindMismatch, env.Kind)

	status, _ = api.do(t, http.MethodPost, "/v1/auth/register/verify", token, map[string]any{
		"pending": p, "code": api.code(t, "a@x.com"),
	})
	require.Equal(t, http.StatusOK, status)

	status, env = api.do(t, http.MethodPost, "/v1/auth/register/verify", token, map[string]any{
		"pending": p, "code": api.code(t, "a@x.com"),
	})
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, apartments.KindExpired, env.Kind)

	status, env = api.do(t, http.MethodPost, "/v1/auth/register", token, map[string]any{
		"name": []string{"Other"}, "email": "a@x.com", "password": "p2",
	})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &p))
	status, env = api.do(t, http.MethodPost, "/v1/auth/register/verify", token, map[string]any{
		"pending": p, "code": api.code(t, "a@x.com"),
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apartments.KindDuplicateEmail, env.Kind)
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	token := api.client(t)
	api.register(t, token, "a@x.com", "p1")

	other := api.client(t)
	status, env := api.do(t, http.MethodPost, "/v1/auth/login", other, map[string]string{
		"email": "a@x.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apartments.KindInvalidCredentials, env.Kind)
	assert.Equal(t, "auth.error.invalid_credentials", env.Message)

	status, unknown := api.do(t, http.MethodPost, "/v1/auth/login", other, map[string]string{
		"email": "nobody@x.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, env, unknown, "login failures must be indistinguishable")

	status, _ = api.do(t, http.MethodPost, "/v1/auth/login", other, map[string]string{
		"email": "a@x.com", "password": "p1",
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(t, http.MethodGet, "/v1/auth/session", other, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestPasswordReset(t *testing.T) {
	api := newTestAPI(t)
	token := api.client(t)
	api.register(t, token, "a@x.com", "p1")

	status, env := api.do(t, http.MethodPost, "/v1/auth/password/forgot", token, map[string]string{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apartments.KindNotFound, env.Kind)

	status, env = api.do(t, http.MethodPost, "/v1/auth/password/forgot", token, map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, status)
	var p apartments.Pending
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, apartments.PurposePasswordReset, p.Purpose)
	code := api.code(t, "a@x.com")

	status, _ = api.do(t, http.MethodPost, "/v1/auth/password/verify", token, map[string]any{"pending": p, "code": code})
	require.Equal(t, http.StatusOK, status)

	status, env = api.do(t, http.MethodPost, "/v1/auth/password/reset", token, map[string]any{
		"pending": p, "code": code, "new_password": "p2",
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, _ = api.do(t, http.MethodPost, "/v1/auth/login", token, map[string]string{"email": "a@x.com", "password": "p1"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.do(t, http.MethodPost, "/v1/auth/login", token, map[string]string{"email": "a@x.com", "password": "p2"})
	assert.Equal(t, http.StatusOK, status)
}

func TestBadBodies(t *testing.T) {
	api := newTestAPI(t)
	token := api.client(t)

	status, env := api.do(t, http.MethodPost, "/v1/auth/login", token, `{"email":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]string{"body": "invalid"}, env.Fields)

	status, _ = api.do(t, http.MethodPost, "/v1/auth/login", token, `{"email":"a@x.com","password":"p","admin":true}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = api.do(t, http.MethodPost, "/v1/auth/password/verify", token, map[string]any{"code": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "required", env.Fields["code"])
}

func TestNonNumericCodeIsMismatch(t *testing.T) {
	api := newTestAPI(t)
	token := api.client(t)

	status, env := api.do(t, http.MethodPost, "/v1/auth/register", token, map[string]any{
		"name": []string{"Amer"}, "email": "a@x.com", "password": "p1",
	})
	require.Equal(t, http.StatusOK, status)
	var p apartments.Pending
	require.NoError(t, json.Unmarshal(env.Data, &p))

	status, env = api.do(t, http.MethodPost, "/v1/auth/register/verify", token, map[string]any{
		"pending": p, "code": "12ab",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, apartments.KindMismatch, env.Kind)
}

func TestStoreOutage(t *testing.T) {
	api := newTestAPI(t)
	token := api.client(t)

	api.mr.Close()

	status, env := api.do(t, http.MethodPost, "/v1/auth/password/forgot", token, map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, apartments.KindUnavailable, env.Kind)

	status, _ = api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	api.client(t)

	n, err := testutil.GatherAndCount(api.registry, "apartments_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecoveryWritesResult(t *testing.T) {
	s := &server{logger: slog.New(slog.DiscardHandler)}

	h := s.recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, apartments.KindInternal, env.Kind)
}

func TestNewRouterRequiresDeps(t *testing.T) {
	_, err := NewRouter(Deps{})
	assert.Error(t, err)
}

func TestRegisterReplacesEarlierCode(t *testing.T) {
	api := newTestAPI(t)
	token := api.client(t)
	body := map[string]any{"name": []string{"Amer"}, "email": "a@x.com", "password": "p1"}

	status, env := api.do(t, http.MethodPost, "/v1/auth/register", token, body)
	require.Equal(t, http.StatusOK, status)
	var first apartments.Pending
	require.NoError(t, json.Unmarshal(env.Data, &first))
	firstCode := api.code(t, "a@x.com")

	body["replaces"] = first
	status, env = api.do(t, http.MethodPost, "/v1/auth/register", token, body)
	require.Equal(t, http.StatusOK, status)
	var second apartments.Pending
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.NotEqual(t, first.ID, second.ID)

	status, env = api.do(t, http.MethodPost, "/v1/auth/register/verify", token, map[string]any{
		"pending": first, "code": firstCode,
	})
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, apartments.KindExpired, env.Kind)

	status, _ = api.do(t, http.MethodPost, "/v1/auth/register/verify", token, map[string]any{
		"pending": second, "code": api.code(t, "a@x.com"),
	})
	assert.Equal(t, http.StatusOK, status)
}
