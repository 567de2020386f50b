package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleettrack-dev/fleettrack/internal/auth"
)

type stubChecker struct {
	current  *auth.User
	fetched  *auth.User
	refetchN int
}

func (s *stubChecker) CurrentUser() *auth.User { return s.current }

func (s *stubChecker) RefetchMe(context.Context) *auth.User {
	s.refetchN++
	return s.fetched
}

type recorded struct {
	kind, resolution string
	redirected       bool
}

type stubRecorder struct{ calls []recorded }

func (r *stubRecorder) ObserveGuard(kind, resolution string, redirected bool) {
	r.calls = append(r.calls, recorded{kind, resolution, redirected})
}

var someone = &auth.User{ID: "1", Name: "A", Email: "a@b.com"}

func TestCheck(t *testing.T) {
	tests := []struct {
		name         string
		kind         Kind
		checker      *stubChecker
		path         string
		wantRes      Resolution
		wantRedirect string
		wantRefetch  int
	}{
		{
			name:         "protected anonymous redirects to sign-in",
			kind:         Protected,
			checker:      &stubChecker{},
			path:         "/dashboard",
			wantRes:      Anonymous,
			wantRedirect: "/sign-in?redirect=%2Fdashboard",
			wantRefetch:  1,
		},
		{
			name:        "protected with cached identity skips refetch",
			kind:        Protected,
			checker:     &stubChecker{current: someone},
			path:        "/drivers",
			wantRes:     Authenticated,
			wantRefetch: 0,
		},
		{
			name:        "protected falls back to refetch",
			kind:        Protected,
			checker:     &stubChecker{fetched: someone},
			path:        "/trips",
			wantRes:     Authenticated,
			wantRefetch: 1,
		},
		{
			name:         "public-only authenticated redirects to dashboard",
			kind:         PublicOnly,
			checker:      &stubChecker{current: someone},
			path:         "/sign-in",
			wantRes:      Authenticated,
			wantRedirect: "/dashboard",
		},
		{
			name:        "public-only anonymous passes",
			kind:        PublicOnly,
			checker:     &stubChecker{},
			path:        "/sign-up",
			wantRes:     Anonymous,
			wantRefetch: 1,
		},
		{
			name:    "open never refetches",
			kind:    Open,
			checker: &stubChecker{fetched: someone},
			path:    "/health",
			wantRes: Anonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Check(context.Background(), tt.kind, RouteContext{Auth: tt.checker}, tt.path)

			assert.Equal(t, tt.wantRes, d.Resolution)
			assert.Equal(t, tt.wantRedirect, d.Redirect)
			assert.Equal(t, tt.wantRedirect == "", d.Allowed())
			assert.Equal(t, tt.wantRefetch, tt.checker.refetchN)
		})
	}
}

func TestCheck_NilAuthIsAnonymous(t *testing.T) {
	d := Check(context.Background(), Protected, RouteContext{}, "/maps")
	assert.Equal(t, Anonymous, d.Resolution)
	assert.Equal(t, "/sign-in?redirect=%2Fmaps", d.Redirect)
}

func TestRequire(t *testing.T) {
	user, err := Require(context.Background(), &stubChecker{fetched: someone})
	require.NoError(t, err)
	assert.Equal(t, "1", user.ID)

	_, err = Require(context.Background(), &stubChecker{})
	assert.ErrorIs(t, err, ErrSignInRequired)
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"", "/dashboard"},
		{"/trips", "/trips"},
		{"/trips?status=completed", "/trips?status=completed"},
		{"https://evil.example/x", "/dashboard"},
		{"//evil.example", "/dashboard"},
		{"/\\evil.example", "/dashboard"},
		{"javascript:alert(1)", "/dashboard"},
		{"drivers", "/dashboard"},
		{"/sign-in?redirect=/x", "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeRedirect(tt.target))
		})
	}
}

func TestSignInURL(t *testing.T) {
	assert.Equal(t, "/sign-in", SignInURL("/"))
	assert.Equal(t, "/sign-in", SignInURL(""))
	assert.Equal(t, "/sign-in?redirect=%2Ftrips%3Fstatus%3Dpending", SignInURL("/trips?status=pending"))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(checker *stubChecker, rec Recorder) *gin.Engine {
		r := gin.New()
		lookup := func(*gin.Context) RouteContext { return RouteContext{Auth: checker} }

		r.GET("/dashboard", Middleware(Protected, lookup, rec, zerolog.Nop()), func(c *gin.Context) {
			user, ok := UserFrom(c)
			require.True(t, ok)
			c.String(http.StatusOK, "hello "+user.Name)
		})
		r.GET("/sign-in", Middleware(PublicOnly, lookup, rec, zerolog.Nop()), func(c *gin.Context) {
			_, ok := UserFrom(c)
			assert.False(t, ok)
			c.String(http.StatusOK, "sign in")
		})
		return r
	}

	t.Run("anonymous visitor to dashboard", func(t *testing.T) {
		rec := &stubRecorder{}
		w := httptest.NewRecorder()
		newRouter(&stubChecker{}, rec).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/sign-in?redirect=%2Fdashboard", w.Header().Get("Location"))
		require.Len(t, rec.calls, 1)
		assert.Equal(t, recorded{"protected", "anonymous", true}, rec.calls[0])
	})

	t.Run("authenticated visitor to dashboard", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(&stubChecker{current: someone}, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hello A", w.Body.String())
	})

	t.Run("authenticated visitor to sign-in", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(&stubChecker{current: someone}, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sign-in", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	})

	t.Run("anonymous visitor to sign-in", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(&stubChecker{}, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sign-in", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
