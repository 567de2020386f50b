package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
	"github.com/fleettrack-dev/fleettrack/internal/auth"
	"github.com/fleettrack-dev/fleettrack/internal/guard"
	"github.com/fleettrack-dev/fleettrack/internal/session"
	"github.com/fleettrack-dev/fleettrack/internal/storage"
	"github.com/fleettrack-dev/fleettrack/internal/transport"
)

const (
	StorageKeyring = "keyring"
	StorageFile    = "file"

	DefaultAPIURL       = "http://localhost:3000/api"
	DefaultDashboardURL = "http://localhost:8080"
)

// ErrNotLoggedIn is returned by commands that need a session when there is none
var ErrNotLoggedIn = errors.New("not authenticated. Please run 'fleettrack login' first")

// Env is what every command shares: the persistent flags, where the session
// lives and the terminal it talks to
type Env struct {
	APIURL       string
	DashboardURL string
	StorageKind  string
	ConfigPath   string
	SessionPath  string

	// Interactive allows prompting for missing values
	Interactive bool
	Stdin       io.ReadCloser
	Stdout      io.Writer
	Logger      zerolog.Logger

	OpenBrowser func(url string) error
}

// NewEnv returns an Env for the current terminal
func NewEnv(logger zerolog.Logger) *Env {
	return &Env{
		StorageKind: StorageKeyring,
		Interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Logger:      logger,
		OpenBrowser: openBrowser,
	}
}

// Validate checks the flag values
func (e *Env) Validate() error {
	switch e.StorageKind {
	case StorageKeyring, StorageFile:
	default:
		return fmt.Errorf("invalid --storage %q, must be one of: keyring, file", e.StorageKind)
	}

	u, err := url.Parse(e.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid --api %q, expected an absolute URL like %s", e.APIURL, DefaultAPIURL)
	}
	return nil
}

// scope keys stored credentials by backend host
func (e *Env) scope() string {
	u, err := url.Parse(e.APIURL)
	if err != nil {
		return e.APIURL
	}
	return u.Host
}

func (e *Env) storage() (storage.Storage, error) {
	if e.StorageKind == StorageFile {
		path := e.SessionPath
		if path == "" {
			var err error
			if path, err = storage.DefaultFilePath(); err != nil {
				return nil, err
			}
		}
		return storage.NewFileStore(path, e.scope()), nil
	}
	return storage.NewKeyringStore(e.scope()), nil
}

// Open restores the stored session for the selected backend. The returned
// client sends the session's token.
func (e *Env) Open(ctx context.Context) (*session.Store, *transport.Client, error) {
	st, err := e.storage()
	if err != nil {
		return nil, nil, err
	}

	api := transport.New(e.APIURL)
	store := session.New(api, st, e.Logger)
	api.SetTokenSource(store)

	if err := store.Init(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return store, api, nil
}

// RequireUser gates a command on an authenticated session
func (e *Env) RequireUser(ctx context.Context, store *session.Store) (*auth.User, error) {
	user, err := guard.Require(ctx, store)
	if err != nil {
		return nil, ErrNotLoggedIn
	}
	return user, nil
}

// backendError turns a failed fleet call into a command error. A rejected
// credential is confirmed with the backend and, when gone, the stored session
// is dropped.
func (e *Env) backendError(ctx context.Context, store *session.Store, err error) error {
	if apperr.IsAuthentication(err) && store.RefetchMe(ctx) == nil {
		return fmt.Errorf("session expired: %w", ErrNotLoggedIn)
	}
	return fmt.Errorf("request failed: %s", apperr.Message(err))
}

// printf writes to the command output
func (e *Env) printf(format string, args ...any) {
	fmt.Fprintf(e.Stdout, format, args...)
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
