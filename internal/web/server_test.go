package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fleettrack-dev/fleettrack/internal/auth"
	"github.com/fleettrack-dev/fleettrack/internal/config"
	"github.com/fleettrack-dev/fleettrack/internal/database"
	"github.com/fleettrack-dev/fleettrack/internal/fleet"
)

// stubBackend is a minimal fleet API: one account, opaque tokens
type stubBackend struct {
	mu       sync.Mutex
	accounts map[string]string
	names    map[string]string
	tokens   map[string]string // token -> email
	next     int
	calls    map[string]int
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		accounts: map[string]string{"ana@fleet.test": "secret1"},
		names:    map[string]string{"ana@fleet.test": "Ana Lima"},
		tokens:   map[string]string{},
		calls:    map[string]int{},
	}
}

func (b *stubBackend) userFor(email string) auth.User {
	id := "1"
	if email != "ana@fleet.test" {
		id = email
	}
	return auth.User{ID: id, Name: b.names[email], Email: email}
}

func (b *stubBackend) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *stubBackend) revokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]string{}
}

func (b *stubBackend) issue(email string) string {
	b.next++
	token := "tok-" + strconv.Itoa(b.next)
	b.tokens[token] = email
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *stubBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	name := strings.TrimPrefix(r.URL.Path, "/api/")
	b.calls[name]++

	email, authed := b.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]

	switch name {
	case "auth/login":
		var req auth.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if pw, ok := b.accounts[req.Email]; !ok || pw != req.Password {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Credenciais inválidas"})
			return
		}
		user := b.userFor(req.Email)
		writeJSON(w, http.StatusOK, auth.LoginResponse{User: &user, Token: b.issue(req.Email)})
	case "auth/register":
		var req auth.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, exists := b.accounts[req.Email]; exists {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "E-mail já cadastrado"})
			return
		}
		b.accounts[req.Email] = req.Password
		b.names[req.Email] = req.Name
		w.WriteHeader(http.StatusCreated)
	case "auth/logout":
		w.WriteHeader(http.StatusNoContent)
	case "auth/me":
		if !authed {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Sessão expirada"})
			return
		}
		writeJSON(w, http.StatusOK, b.userFor(email))
	case "auth/refresh-token":
		if !authed {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Sessão expirada"})
			return
		}
		writeJSON(w, http.StatusOK, auth.LoginResponse{Token: b.issue(email)})
	case "dashboard":
		if !authed {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Sessão expirada"})
			return
		}
		writeJSON(w, http.StatusOK, fleet.Summary{Stats: []fleet.Stat{{Title: "Motoristas Ativos", Value: "7"}}})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

type testEnv struct {
	t       *testing.T
	server  *Server
	backend *stubBackend
	db      *gorm.DB
	cfg     *config.Config
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			AuthRateLimit:      100,
			CORSAllowedOrigins: []string{"http://localhost:5173"},
		},
		API:     config.APIConfig{BaseURL: apiURL + "/api", Timeout: 5 * time.Second},
		Session: config.SessionConfig{IdleTTL: time.Hour},
		Fleet:   config.FleetConfig{Source: "fixtures"},
	}
}

func newTestEnv(t *testing.T, tweak func(*config.Config)) *testEnv {
	t.Helper()

	backend := newStubBackend()
	api := httptest.NewServer(backend)
	t.Cleanup(api.Close)

	db, err := database.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	cfg := testConfig(api.URL)
	if tweak != nil {
		tweak(cfg)
	}

	srv, err := New(cfg, db, zerolog.Nop(), "test")
	require.NoError(t, err)

	return &testEnv{t: t, server: srv, backend: backend, db: db, cfg: cfg}
}

// browser replays the visitor cookie like a real browser would
type browser struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (e *testEnv) browser() *browser {
	return &browser{t: e.t, handler: e.server.Handler()}
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}

	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name != visitorCookie {
			continue
		}
		if ck.MaxAge < 0 {
			b.cookie = nil
		} else {
			b.cookie = ck
		}
	}
	return w
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, nil)
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, target, form)
}

func (b *browser) signIn() {
	b.t.Helper()
	w := b.post("/sign-in", url.Values{"email": {"ana@fleet.test"}, "password": {"secret1"}})
	require.Equal(b.t, http.StatusSeeOther, w.Code, w.Body.String())
}

func TestProtectedRoute_RedirectsAnonymous(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()

	w := b.get("/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/sign-in?redirect=%2Fdashboard", w.Header().Get("Location"))

	require.NotNil(t, b.cookie, "a visitor cookie is issued")
	assert.True(t, b.cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, b.cookie.SameSite)

	w = b.get("/trips?search=t001")
	assert.Equal(t, "/sign-in?redirect=%2Ftrips%3Fsearch%3Dt001", w.Header().Get("Location"))

	assert.Zero(t, env.backend.count("auth/me"), "no token, no round trip")
}

func TestLanding(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()

	w := b.get("/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/sign-in", w.Header().Get("Location"))

	b.signIn()
	w = b.get("/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestSignIn(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()

	w := b.get("/sign-in?redirect=%2Ftrips")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="redirect" value="/trips"`)

	w = b.post("/sign-in", url.Values{
		"email":    {"ana@fleet.test"},
		"password": {"secret1"},
		"redirect": {"/trips"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/trips", w.Header().Get("Location"))

	w = b.get("/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ana Lima")
	assert.Contains(t, w.Body.String(), "Monitore suas operações de frota em tempo real")

	w = b.get("/sign-in")
	assert.Equal(t, http.StatusFound, w.Code, "public-only once signed in")
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = b.get("/api/session")
	require.Equal(t, http.StatusOK, w.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Authenticated)
	assert.Equal(t, "1", resp.User.ID)
	assert.NotContains(t, w.Body.String(), "tok-", "the bearer token never reaches the browser")
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()

	w := b.post("/sign-in", url.Values{"email": {"ana@fleet.test"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Credenciais inválidas")

	w = b.get("/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestSignIn_ValidationNeverReachesBackend(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()

	w := b.post("/sign-in", url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "E-mail inválido")
	assert.Contains(t, w.Body.String(), "Senha é obrigatória")
	assert.Zero(t, env.backend.count("auth/login"))
}

func TestSignIn_UnsafeRedirect(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()

	w := b.post("/sign-in", url.Values{
		"email":    {"ana@fleet.test"},
		"password": {"secret1"},
		"redirect": {"//evil.example/phish"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestSignUp(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()

	w := b.post("/sign-up", url.Values{
		"name":            {"Bruno Costa"},
		"email":           {"bruno@fleet.test"},
		"password":        {"secret1"},
		"confirmPassword": {"secret2"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "As senhas não coincidem")
	assert.Zero(t, env.backend.count("auth/register"))

	w = b.post("/sign-up", url.Values{
		"name":            {"Bruno Costa"},
		"email":           {"bruno@fleet.test"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	assert.Equal(t, 1, env.backend.count("auth/register"))
	assert.Equal(t, 1, env.backend.count("auth/login"), "registration signs in")

	w = b.get("/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Bruno Costa")
}

func TestSignUp_Conflict(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()

	w := b.post("/sign-up", url.Values{
		"name":            {"Ana"},
		"email":           {"ana@fleet.test"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "E-mail já cadastrado")
	assert.Zero(t, env.backend.count("auth/login"))
}

func TestSignOut(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()
	b.signIn()
	require.Equal(t, 1, env.server.Registry().Len())

	w := b.post("/sign-out", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/sign-in", w.Header().Get("Location"))
	assert.Nil(t, b.cookie, "cookie cleared")
	assert.Equal(t, 1, env.backend.count("auth/logout"))
	assert.Zero(t, env.server.Registry().Len())

	w = b.get("/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestSessionSurvivesRestart(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()
	b.signIn()

	restarted, err := New(env.cfg, env.db, zerolog.Nop(), "test")
	require.NoError(t, err)
	b.handler = restarted.Handler()

	w := b.get("/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ana Lima")
	assert.Zero(t, env.backend.count("auth/me"), "restored from storage without a round trip")
}

func TestUnknownVisitorIDIsNotAdopted(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()
	b.cookie = &http.Cookie{Name: visitorCookie, Value: "01HZZZZZZZZZZZZZZZZZZZZZZZ"}

	b.get("/sign-in")
	require.NotNil(t, b.cookie)
	assert.NotEqual(t, "01HZZZZZZZZZZZZZZZZZZZZZZZ", b.cookie.Value)
}

func TestRemoteSource_RejectedTokenSignsOut(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Fleet.Source = "remote" })
	b := env.browser()
	b.signIn()

	w := b.get("/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Motoristas Ativos")

	env.backend.revokeAll()

	w = b.get("/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/sign-in?redirect=%2Fdashboard", w.Header().Get("Location"))

	w = b.get("/api/session")
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestDriverWizard(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()
	b.signIn()

	w := b.get("/drivers/new")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Etapa 1 de 3")

	w = b.post("/drivers/new", url.Values{"action": {"next"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Nome é obrigatório")

	w = b.post("/drivers/new", url.Values{"action": {"next"}, "name": {"Paula Lima"}, "email": {"paula@empresa.com"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = b.get("/drivers/new")
	assert.Contains(t, w.Body.String(), "Etapa 2 de 3")

	w = b.post("/drivers/new", url.Values{"action": {"next"}, "phone": {"11987654321"}, "vehicle": {"Van - V010"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = b.post("/drivers/new", url.Values{"action": {"submit"}, "status": {"on_break"}, "location": {"Depósito"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/drivers?registered="))

	w = b.get(w.Header().Get("Location"))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Motorista cadastrado com sucesso")
	assert.Contains(t, body, "Paula Lima")
	assert.Contains(t, body, "(11) 98765-4321")

	w = b.get("/drivers/new")
	assert.Contains(t, w.Body.String(), "Etapa 1 de 3", "the wizard resets after submit")
}

func TestDriverWizard_Cancel(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()
	b.signIn()

	b.post("/drivers/new", url.Values{"action": {"next"}, "name": {"Paula"}, "email": {"paula@empresa.com"}})
	w := b.post("/drivers/new", url.Values{"action": {"cancel"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/drivers", w.Header().Get("Location"))

	w = b.get("/drivers/new")
	assert.Contains(t, w.Body.String(), "Etapa 1 de 3")
	assert.NotContains(t, w.Body.String(), "paula@empresa.com")
}

func TestTrips(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()
	b.signIn()

	w := b.get("/trips?search=t001")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="trip-T001"`)
	assert.NotContains(t, w.Body.String(), `id="trip-T002"`)

	w = b.get("/trips?status=completed")
	assert.Contains(t, w.Body.String(), `id="trip-T002"`)
	assert.NotContains(t, w.Body.String(), `id="trip-T001"`)

	w = b.get("/trips?search=zzz")
	assert.Contains(t, w.Body.String(), "Nenhuma viagem encontrada")
}

func TestDrivers_HugePage(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()
	b.signIn()

	w := b.get("/drivers?page=92233720368547760&per_page=100")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Nenhum motorista cadastrado")
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()
	b.signIn()

	w := b.get("/settings")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/settings/profile/1", w.Header().Get("Location"))

	w = b.get("/settings/profile/99")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/settings/profile/1", w.Header().Get("Location"))

	w = b.get("/settings/profile/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "TransLog Brasil")

	form := url.Values{
		"name":     {"TransLog Sul"},
		"email":    {"contato@translog.com.br"},
		"phone":    {"(51) 3333-4444"},
		"address":  {"Av. Central, 1"},
		"timezone": {"Europe/Lisbon"},
	}
	w = b.post("/settings/profile/1", form)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Fuso horário inválido")

	form.Set("timezone", "America/Manaus")
	form.Set("notify_sms", "true")
	w = b.post("/settings/profile/1", form)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/settings/profile/1?saved=1", w.Header().Get("Location"))

	w = b.get("/settings/profile/1?saved=1")
	assert.Contains(t, w.Body.String(), "TransLog Sul")
	assert.Contains(t, w.Body.String(), "Configurações salvas com sucesso")
}

func TestMaps(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()
	b.signIn()

	w := b.get("/maps")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Configuração do Mapbox Necessária")

	w = b.post("/maps/token", url.Values{"token": {"  "}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = b.get("/maps")
	assert.Contains(t, w.Body.String(), "Configuração do Mapbox Necessária", "blank tokens are ignored")

	b.post("/maps/token", url.Values{"token": {"pk.test"}})
	w = b.get("/maps")
	assert.Contains(t, w.Body.String(), `data-token="pk.test"`)
	assert.NotContains(t, w.Body.String(), "Configuração do Mapbox Necessária")
}

func TestRefreshSession(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()

	w := b.post("/api/session/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	b.signIn()
	w = b.post("/api/session/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	assert.Equal(t, 1, env.backend.count("auth/refresh-token"))
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.HTTP.AuthRateLimit = 2 })
	b := env.browser()

	bad := url.Values{"email": {"ana@fleet.test"}, "password": {"nope"}}
	assert.Equal(t, http.StatusUnauthorized, b.post("/sign-in", bad).Code)
	assert.Equal(t, http.StatusUnauthorized, b.post("/sign-in", bad).Code)

	w := b.post("/sign-in", bad)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), msgRateLimited)
	assert.Equal(t, 2, env.backend.count("auth/login"))
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()

	w := b.get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"online"`)
	assert.Nil(t, b.cookie, "health checks create no visitor")

	b.get("/dashboard")

	w = b.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `fleettrack_guard_decisions_total{kind="protected",redirected="true",resolution="anonymous"} 1`)
	assert.Contains(t, w.Body.String(), "fleettrack_active_visitors 1")
}

func TestSweep(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser()
	b.signIn()

	n, err := env.server.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "recent visitors stay")

	env.server.registry.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = env.server.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, env.server.Registry().Len())
	assert.Equal(t, 1, env.backend.count("auth/logout"), "idle sessions are logged out")

	w := b.get("/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)
}
