package herald

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/eringen/herald/views"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		a.loginLimiter.Reset(ip)
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminRebuild(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	msg := "Build started."
	if err := a.Rebuild("console"); err != nil {
		if !errors.Is(err, ErrBuildInProgress) {
			return err
		}
		msg = "A build is already running."
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) handleAdminBuild(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	build, err := a.Store.GetBuild(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	plan, err := a.Store.ListBuildPages(ctx, id)
	if err != nil {
		return err
	}

	var diff PageDiff
	prev, err := a.Store.PreviousBuild(ctx, id)
	switch {
	case err == nil:
		if diff, err = a.Store.DiffPages(ctx, prev.ID, id); err != nil {
			return err
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}
	return Render(c, a.Views.AdminBuild(buildRow(build), pageRows(plan, diff)))
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	builds, err := a.Cache.ListBuilds(c.Request().Context())
	if err != nil {
		return err
	}
	rows := make([]views.BuildRow, len(builds))
	for i, b := range builds {
		rows[i] = buildRow(b)
	}
	return Render(c, a.Views.AdminDashboard(rows, msg, a.Building(), CsrfToken(c)))
}

func buildRow(b BuildRecord) views.BuildRow {
	return views.BuildRow{
		ID:         b.ID,
		StartedAt:  b.StartedAt,
		Duration:   b.Duration(),
		State:      b.State.String(),
		Pages:      b.Pages,
		Skipped:    b.Skipped,
		FailedType: b.FailedType,
		Error:      b.Error,
	}
}

// pageRows lists the build's pages followed by those it no longer has.
func pageRows(plan Plan, diff PageDiff) []views.PageRow {
	tags := make(map[string]string, len(diff.Added)+len(diff.Changed))
	for _, p := range diff.Added {
		tags[p] = "added"
	}
	for _, p := range diff.Changed {
		tags[p] = "changed"
	}
	rows := make([]views.PageRow, 0, len(plan)+len(diff.Removed))
	for _, e := range plan {
		rows = append(rows, views.PageRow{
			Path:      e.Path,
			Template:  e.Template,
			ID:        e.Context.ID,
			Previous:  e.Context.PreviousPostID,
			Next:      e.Context.NextPostID,
			ChangeTag: tags[e.Path],
		})
	}
	for _, p := range diff.Removed {
		rows = append(rows, views.PageRow{Path: p, ChangeTag: "removed"})
	}
	return rows
}
