package herald

import (
	"crypto/subtle"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HookTokenHeader carries the webhook shared secret.
const HookTokenHeader = "X-Herald-Token"

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.Metrics, promhttp.HandlerOpts{})))
	e.GET("/healthz", a.handleHealth)
	e.POST("/hooks/rebuild", a.handleHookRebuild)

	if a.Config.AdminPassword != "" {
		g := e.Group("/admin", a.consoleMiddleware()...)
		g.GET("/", a.handleAdmin)
		g.POST("/login/", a.handleAdminLogin)
		g.POST("/logout/", handleAdminLogout)
		g.POST("/rebuild/", a.handleAdminRebuild)
		g.GET("/builds/:id/", a.handleAdminBuild)
	}

	// everything else is the generated site
	e.GET("/*", a.handleSite)
	e.HEAD("/*", a.handleSite)
}

func (a *App) handleSite(c echo.Context) error {
	p, err := url.PathUnescape(c.Request().URL.Path)
	if err != nil {
		return echo.ErrNotFound
	}
	name := filepath.Join(a.Config.OutputDir, filepath.FromSlash(path.Clean("/"+p)))
	info, err := os.Stat(name)
	if err != nil {
		return echo.ErrNotFound
	}
	if info.IsDir() {
		name = filepath.Join(name, "index.html")
		if _, err := os.Stat(name); err != nil {
			return echo.ErrNotFound
		}
	}
	return c.File(name)
}

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

type healthResponse struct {
	State     string     `json:"state"`
	Building  bool       `json:"building"`
	LastBuild *buildJSON `json:"last_build,omitempty"`
}

type buildJSON struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Pages      int       `json:"pages"`
	Skipped    bool      `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
}

func (a *App) handleHealth(c echo.Context) error {
	resp := healthResponse{State: a.Pipeline.State().String(), Building: a.Building() || a.Pipeline.Building()}
	latest, ok, err := a.Cache.Latest(c.Request().Context())
	if err != nil {
		return err
	}
	if ok {
		resp.LastBuild = &buildJSON{
			ID:         latest.ID,
			State:      latest.State.String(),
			StartedAt:  latest.StartedAt,
			DurationMS: latest.Duration().Milliseconds(),
			Pages:      latest.Pages,
			Skipped:    latest.Skipped,
			Error:      latest.Error,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *App) handleHookRebuild(c echo.Context) error {
	if a.Config.WebhookToken == "" {
		return echo.ErrNotFound
	}
	ip := c.RealIP()
	if !a.hookLimiter.Check(ip) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many attempts"})
	}
	token := c.Request().Header.Get(HookTokenHeader)
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.Config.WebhookToken)) != 1 {
		a.hookLimiter.Record(ip)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}
	if err := a.Rebuild("webhook"); err != nil {
		if errors.Is(err, ErrBuildInProgress) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		a.renderNotFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error("server error", ErrorAttr(err), PathAttr(c.Request().URL.Path))
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// renderNotFound prefers the generated 404.html so it matches the site.
func (a *App) renderNotFound(c echo.Context) {
	b, err := os.ReadFile(filepath.Join(a.Config.OutputDir, "404.html"))
	if err == nil {
		_ = c.HTMLBlob(http.StatusNotFound, b)
		return
	}
	if !errors.Is(err, fs.ErrNotExist) {
		a.Logger.Warn("reading 404 page failed", ErrorAttr(err))
	}
	_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
}
