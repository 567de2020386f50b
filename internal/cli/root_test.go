package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/fleettrack-dev/fleettrack/internal/cli/commands"
	"github.com/fleettrack-dev/fleettrack/internal/cli/userconfig"
	"github.com/fleettrack-dev/fleettrack/internal/config"
	"github.com/fleettrack-dev/fleettrack/internal/database"
	"github.com/fleettrack-dev/fleettrack/internal/devapi"
)

// newBackend starts the development backend on an in-memory database and
// returns its API URL
func newBackend(t *testing.T) string {
	t.Helper()

	db, err := database.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	cfg := &config.Config{
		DevAPI: config.DevAPIConfig{JWTSecret: "cli-test-secret", TokenTTL: time.Hour},
	}
	srv, err := devapi.New(cfg, db, zerolog.Nop())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL + "/api"
}

type harness struct {
	env    *commands.Env
	out    *bytes.Buffer
	apiURL string
	opened string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("FLEETTRACK_API", "")
	t.Setenv("FLEETTRACK_EMAIL", "")
	t.Setenv("FLEETTRACK_PASSWORD", "")

	dir := t.TempDir()
	h := &harness{out: &bytes.Buffer{}, apiURL: newBackend(t)}
	h.env = &commands.Env{
		ConfigPath:  filepath.Join(dir, "config.json"),
		SessionPath: filepath.Join(dir, "session.json"),
		Stdin:       io.NopCloser(strings.NewReader("")),
		Stdout:      h.out,
		Logger:      zerolog.Nop(),
		OpenBrowser: func(url string) error {
			h.opened = url
			return nil
		},
	}
	return h
}

// run executes one command line against the harness backend with file storage
func (h *harness) run(args ...string) (string, error) {
	h.out.Reset()
	full := append([]string{"--api", h.apiURL, "--storage", commands.StorageFile}, args...)

	cmd := NewRootCmd(h.env)
	cmd.SetArgs(full)
	cmd.SetOut(h.out)
	err := cmd.ExecuteContext(context.Background())
	return h.out.String(), err
}

func (h *harness) register(t *testing.T) {
	t.Helper()
	_, err := h.run("register", "--name", "Ana Lima", "--email", "ana@fleet.test", "--password", "secret1")
	require.NoError(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("register", "--name", "Ana Lima", "--email", "ana@fleet.test", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Account created!")

	out, err = h.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Lima (ana@fleet.test)")

	out, err = h.run("whoami", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Lima")

	out, err = h.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Logged out")

	_, err = h.run("whoami")
	assert.ErrorIs(t, err, commands.ErrNotLoggedIn)

	out, err = h.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")

	out, err = h.run("login", "--email", "ana@fleet.test", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Login successful!")
	assert.Contains(t, out, "User: Ana Lima (ana@fleet.test)")
}

func TestLogin_RemembersBackend(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	_, err := h.run("logout")
	require.NoError(t, err)

	_, err = h.run("login", "--email", "ana@fleet.test", "--password", "secret1")
	require.NoError(t, err)

	saved, err := userconfig.Load(h.env.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, h.apiURL, saved.APIURL)
}

func TestLogin_Rejected(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	_, err := h.run("login", "--email", "ana@fleet.test", "--password", "wrong-pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed: E-mail ou senha inválidos")

	// A rejected login drops the identity that was held before
	_, err = h.run("whoami")
	assert.ErrorIs(t, err, commands.ErrNotLoggedIn)
}

func TestLogin_NonInteractive(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("login", "--email", "ana@fleet.test")
	require.Error(t, err)
	assert.Equal(t, "password is required in non-interactive mode (use --password)", err.Error())

	_, err = h.run("login", "--email", "not-an-email", "--password", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input")
	assert.Contains(t, err.Error(), "email")
}

func TestLogin_FromEnvironment(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	_, err := h.run("logout")
	require.NoError(t, err)

	t.Setenv("FLEETTRACK_EMAIL", "ana@fleet.test")
	t.Setenv("FLEETTRACK_PASSWORD", "secret1")

	out, err := h.run("login")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Login successful!")
}

func TestRegister_PasswordMismatchNeverReachesBackend(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("register", "--name", "Ana Lima", "--email", "ana@fleet.test", "--password", "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")

	// The account was never created, so a valid registration succeeds
	h.register(t)
}

func TestDrivers(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("drivers", "ls")
	assert.ErrorIs(t, err, commands.ErrNotLoggedIn)

	h.register(t)

	out, err := h.run("drivers", "ls", "--per-page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "João Silva")
	assert.Contains(t, out, "Sara Souza")
	assert.NotContains(t, out, "Miguel Santos")
	assert.Contains(t, out, "Page 1 of 2 (4 drivers)")

	out, err = h.run("drivers", "add",
		"--name", "Carlos Dias",
		"--email", "carlos@fleet.test",
		"--phone", "11987654321",
		"--vehicle", "JKL-7788",
		"--status", "on_break",
		"--location", "Campinas, SP",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Driver registered")
	assert.Contains(t, out, "Carlos Dias (JKL-7788), Em pausa")

	out, err = h.run("drivers", "ls", "--page", "3", "--per-page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Carlos Dias")
	assert.Contains(t, out, "Page 3 of 3 (5 drivers)")
}

func TestDriversAdd_Invalid(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	_, err := h.run("drivers", "add", "--name", "Carlos Dias", "--email", "carlos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input")
	assert.Contains(t, err.Error(), "email: E-mail inválido")

	_, err = h.run("drivers", "add", "--status", "off_duty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --status")
}

func TestTrips(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	out, err := h.run("trips", "ls", "--status", "in_progress")
	require.NoError(t, err)
	assert.Contains(t, out, "T004")
	assert.NotContains(t, out, "T003")

	out, err = h.run("trips", "ls", "--search", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "No trips found.")

	_, err = h.run("trips", "ls", "--status", "cancelled")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --status")
}

func TestDash(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("--dashboard", "http://dash.test/", "dash")
	require.NoError(t, err)
	assert.Equal(t, "http://dash.test/dashboard", h.opened)
}

func TestKeyringStorage(t *testing.T) {
	keyring.MockInit()
	h := newHarness(t)

	run := func(args ...string) error {
		cmd := NewRootCmd(h.env)
		cmd.SetArgs(append([]string{"--api", h.apiURL, "--storage", commands.StorageKeyring}, args...))
		return cmd.ExecuteContext(context.Background())
	}

	require.NoError(t, run("register", "--name", "Ana Lima", "--email", "ana@fleet.test", "--password", "secret1"))
	require.NoError(t, run("whoami"))

	// The file store never saw the session
	_, err := h.run("whoami")
	assert.ErrorIs(t, err, commands.ErrNotLoggedIn)

	require.NoError(t, run("logout"))
	assert.ErrorIs(t, run("whoami"), commands.ErrNotLoggedIn)
}

func TestInvalidFlags(t *testing.T) {
	h := newHarness(t)

	cmd := NewRootCmd(h.env)
	cmd.SetArgs([]string{"--storage", "vault", "whoami"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --storage")

	cmd = NewRootCmd(h.env)
	cmd.SetArgs([]string{"--api", "localhost", "whoami"})
	err = cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --api")
}
