package herald

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, cfg SiteConfig, q Querier) *App {
	t.Helper()
	a := New(cfg, q, WithStore(setupTestStore(t)), WithLogger(quietLogger()))
	require.NoError(t, a.Setup())
	t.Cleanup(func() { a.Close() })
	return a
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func get(a *App, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return serve(a, req)
}

func postForm(a *App, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return serve(a, req)
}

func buildNow(t *testing.T, a *App) {
	t.Helper()
	require.NoError(t, a.Rebuild("test"))
	a.Wait()
}

func TestSetupRequiresSessionSecretWithConsole(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminPassword = "pw"
	a := New(cfg, testContent(), WithStore(setupTestStore(t)), WithLogger(quietLogger()))
	assert.Error(t, a.Setup())
}

func TestHealthReportsLastBuild(t *testing.T) {
	a := newTestApp(t, testConfig(t), testContent())

	rec := get(a, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var before healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.Equal(t, "idle", before.State)
	assert.Nil(t, before.LastBuild)

	buildNow(t, a)

	rec = get(a, "/healthz")
	var after healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	require.NotNil(t, after.LastBuild)
	assert.Equal(t, "done", after.LastBuild.State)
	assert.Equal(t, 5, after.LastBuild.Pages)
	assert.False(t, after.Building)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestHealthReportsFailedSiteWrite(t *testing.T) {
	q := testContent()
	delete(q.docs, "B")
	a := newTestApp(t, testConfig(t), q)
	buildNow(t, a)

	rec := get(a, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "failed", health.State)
	require.NotNil(t, health.LastBuild)
	assert.Equal(t, "failed", health.LastBuild.State)
}

func TestServesGeneratedSite(t *testing.T) {
	a := newTestApp(t, testConfig(t), testContent())
	buildNow(t, a)

	rec := get(a, "/a/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alpha body")

	rec = get(a, "/a")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/a/", rec.Header().Get("Location"))

	rec = get(a, "/feed.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	rec = get(a, "/assets/herald.css")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(a, "/nowhere/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")

	rec = get(a, "/../../etc/hosts.txt")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotFoundBeforeFirstBuild(t *testing.T) {
	a := newTestApp(t, testConfig(t), testContent())
	rec := get(a, "/a/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestWebhook(t *testing.T) {
	t.Run("disabled without token", func(t *testing.T) {
		a := newTestApp(t, testConfig(t), testContent())
		rec := serve(a, httptest.NewRequest(http.MethodPost, "/hooks/rebuild", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects bad token", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.WebhookToken = "s3cret"
		a := newTestApp(t, cfg, testContent())
		req := httptest.NewRequest(http.MethodPost, "/hooks/rebuild", nil)
		req.Header.Set(HookTokenHeader, "wrong")
		assert.Equal(t, http.StatusUnauthorized, serve(a, req).Code)
		assert.False(t, a.Building())
	})

	t.Run("starts build and rejects concurrent", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.WebhookToken = "s3cret"
		q := &blockingQuerier{inner: testContent(), started: make(chan struct{}), release: make(chan struct{})}
		a := newTestApp(t, cfg, q)

		hook := func() *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/hooks/rebuild", nil)
			req.Header.Set(HookTokenHeader, "s3cret")
			return serve(a, req)
		}

		rec := hook()
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.JSONEq(t, `{"status":"started"}`, rec.Body.String())
		<-q.started

		assert.Equal(t, http.StatusConflict, hook().Code)

		close(q.release)
		a.Wait()
		assert.Equal(t, http.StatusOK, get(a, "/a/").Code)
	})

	t.Run("rate limits failed attempts", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.WebhookToken = "s3cret"
		a := newTestApp(t, cfg, testContent())
		var last int
		for i := 0; i < 11; i++ {
			req := httptest.NewRequest(http.MethodPost, "/hooks/rebuild", nil)
			req.Header.Set(HookTokenHeader, "wrong")
			last = serve(a, req).Code
		}
		assert.Equal(t, http.StatusTooManyRequests, last)
	})
}

var csrfInput = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestConsole(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminPassword = "correct horse"
	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	a := newTestApp(t, cfg, testContent())
	buildNow(t, a)

	rec := get(a, "/admin/")
	require.Equal(t, http.StatusOK, rec.Code)
	m := csrfInput.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2, "login form carries a CSRF token")
	token := m[1]
	csrfCookie := findCookie(rec, "_csrf")
	require.NotNil(t, csrfCookie)

	rec = postForm(a, "/admin/login/", url.Values{"password": {"correct horse"}})
	assert.Equal(t, http.StatusForbidden, rec.Code, "missing CSRF token")

	rec = postForm(a, "/admin/login/", url.Values{"password": {"nope"}, "_csrf": {token}}, csrfCookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postForm(a, "/admin/login/", url.Values{"password": {"correct horse"}, "_csrf": {token}}, csrfCookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	session := findCookie(rec, sessionName)
	require.NotNil(t, session)

	rec = get(a, "/admin/", csrfCookie, session)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "/admin/rebuild/")
	builds, err := a.Store.ListBuilds(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Contains(t, body, "/admin/builds/"+builds[0].ID+"/")

	rec = get(a, "/admin/builds/"+builds[0].ID+"/", csrfCookie, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/hero/h/")

	rec = get(a, "/admin/builds/missing/", csrfCookie, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postForm(a, "/admin/rebuild/", url.Values{"_csrf": {token}}, csrfCookie, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/admin/?msg=")
	a.Wait()

	builds, err = a.Store.ListBuilds(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, builds, 2)
}

func TestConsoleRequiresLogin(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminPassword = "pw"
	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	a := newTestApp(t, cfg, testContent())

	rec := get(a, "/admin/builds/anything/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/", rec.Header().Get("Location"))
}

func TestConsoleDisabledWithoutPassword(t *testing.T) {
	a := newTestApp(t, testConfig(t), testContent())
	assert.Equal(t, http.StatusNotFound, get(a, "/admin/").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t, testConfig(t), testContent())
	buildNow(t, a)

	rec := get(a, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "herald_build_outcomes_total")
	assert.Contains(t, body, "herald_pages_emitted_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestScheduleDefinition(t *testing.T) {
	_, err := scheduleDefinition("30m")
	assert.NoError(t, err)
	_, err = scheduleDefinition("0 */6 * * *")
	assert.NoError(t, err)
	_, err = scheduleDefinition("-5m")
	assert.Error(t, err)
}

func TestStartSchedulerRejectsBadCron(t *testing.T) {
	cfg := testConfig(t)
	cfg.RebuildSchedule = "every tuesday"
	a := newTestApp(t, cfg, testContent())
	assert.Error(t, a.startScheduler())

	cfg.RebuildSchedule = ""
	b := newTestApp(t, cfg, testContent())
	assert.NoError(t, b.startScheduler())
	assert.Nil(t, b.scheduler)
}

func TestRebuildRejectsConcurrent(t *testing.T) {
	q := &blockingQuerier{inner: testContent(), started: make(chan struct{}), release: make(chan struct{})}
	a := newTestApp(t, testConfig(t), q)

	require.NoError(t, a.Rebuild("first"))
	<-q.started
	assert.True(t, a.Building())
	assert.ErrorIs(t, a.Rebuild("second"), ErrBuildInProgress)

	close(q.release)
	a.Wait()
	assert.False(t, a.Building())
}

func TestPageRowsTagsChanges(t *testing.T) {
	plan := Plan{
		{Path: "/a/", Template: TemplatePost, Context: PageContext{ID: "A", NextPostID: "B"}},
		{Path: "/b/", Template: TemplatePost, Context: PageContext{ID: "B", PreviousPostID: "A"}},
	}
	rows := pageRows(plan, PageDiff{Added: []string{"/b/"}, Changed: []string{"/a/"}, Removed: []string{"/old/"}})

	require.Len(t, rows, 3)
	assert.Equal(t, "changed", rows[0].ChangeTag)
	assert.Equal(t, "B", rows[0].Next)
	assert.Equal(t, "added", rows[1].ChangeTag)
	assert.Equal(t, "/old/", rows[2].Path)
	assert.Equal(t, "removed", rows[2].ChangeTag)
}

func TestCustomRoutes(t *testing.T) {
	a := New(testConfig(t), testContent(), WithStore(setupTestStore(t)), WithLogger(quietLogger()),
		WithCustomRoutes(func(a *App) {
			a.Echo.GET("/hello/", func(c echo.Context) error { return c.String(http.StatusOK, a.Config.Name) })
		}))
	require.NoError(t, a.Setup())
	t.Cleanup(func() { a.Close() })

	rec := get(a, "/hello/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Herald Test", rec.Body.String())
}
