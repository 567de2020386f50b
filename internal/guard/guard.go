// Package guard decides, before a route is entered, whether the caller may see
// it. Identity comes from the session's operations only; the guard keeps no
// state of its own, so every navigation re-runs the check.
package guard

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/fleettrack-dev/fleettrack/internal/auth"
)

const (
	SignInPath    = "/sign-in"
	SignUpPath    = "/sign-up"
	DashboardPath = "/dashboard"

	// RedirectParam carries the originally requested path to the sign-in page
	RedirectParam = "redirect"
)

// ErrSignInRequired is returned by Require for anonymous callers
var ErrSignInRequired = errors.New("sign-in required")

// Kind classifies a route
type Kind int

const (
	// Open routes are visible to everyone
	Open Kind = iota
	// Protected routes need an identity
	Protected
	// PublicOnly routes (landing, sign-in, sign-up) are for anonymous callers
	PublicOnly
)

func (k Kind) String() string {
	switch k {
	case Protected:
		return "protected"
	case PublicOnly:
		return "public_only"
	default:
		return "open"
	}
}

// Resolution is the state of one navigation attempt
type Resolution int

const (
	Pending Resolution = iota
	Authenticated
	Anonymous
)

func (r Resolution) String() string {
	switch r {
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "pending"
	}
}

// IdentityChecker is the part of the session store routes may call
type IdentityChecker interface {
	CurrentUser() *auth.User
	RefetchMe(ctx context.Context) *auth.User
}

// RouteContext is injected into every route evaluation
type RouteContext struct {
	Auth IdentityChecker
}

// Decision is the outcome of Check. An empty Redirect means the route may be
// entered.
type Decision struct {
	Resolution Resolution
	Redirect   string
	User       *auth.User
}

// Allowed reports whether navigation may proceed
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Check resolves the caller's identity and decides whether path, a route of
// the given kind, may be entered. The in-memory identity is preferred; a
// single RefetchMe is the fallback. A failed fetch resolves to Anonymous.
func Check(ctx context.Context, kind Kind, rc RouteContext, path string) Decision {
	d := Decision{Resolution: Pending}

	if rc.Auth != nil {
		d.User = rc.Auth.CurrentUser()
		if d.User == nil && kind != Open {
			d.User = rc.Auth.RefetchMe(ctx)
		}
	}

	if d.User != nil {
		d.Resolution = Authenticated
	} else {
		d.Resolution = Anonymous
	}

	switch {
	case kind == Protected && d.Resolution == Anonymous:
		d.Redirect = SignInURL(path)
	case kind == PublicOnly && d.Resolution == Authenticated:
		d.Redirect = DashboardPath
	}

	return d
}

// Require is Check for callers without navigation, such as CLI commands
func Require(ctx context.Context, checker IdentityChecker) (*auth.User, error) {
	d := Check(ctx, Protected, RouteContext{Auth: checker}, "")
	if !d.Allowed() {
		return nil, ErrSignInRequired
	}
	return d.User, nil
}

// SignInURL builds the sign-in location that returns to path afterwards
func SignInURL(path string) string {
	if path == "" || path == "/" || strings.HasPrefix(path, SignInPath) {
		return SignInPath
	}
	return SignInPath + "?" + url.Values{RedirectParam: {path}}.Encode()
}

// SafeRedirect returns target when it is a same-origin relative path, and the
// dashboard otherwise
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return DashboardPath
	}
	// Scheme-relative (//host) and backslash tricks
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return DashboardPath
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DashboardPath
	}
	if strings.HasPrefix(u.Path, SignInPath) || strings.HasPrefix(u.Path, SignUpPath) {
		return DashboardPath
	}

	return target
}
