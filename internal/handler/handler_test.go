package handler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/wellness-tracker/internal/auth"
	"github.com/sakif/wellness-tracker/internal/catalog"
	"github.com/sakif/wellness-tracker/internal/handler"
	"github.com/sakif/wellness-tracker/internal/model"
	"github.com/sakif/wellness-tracker/internal/repository/memory"
	"github.com/sakif/wellness-tracker/internal/service"
)

const sid = "session-1"

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeRenderer records what would have been rendered.
type fakeRenderer struct {
	page string
	data any
	err  error
}

func (f *fakeRenderer) Render(w io.Writer, page string, data any) error {
	if f.err != nil {
		return f.err
	}
	f.page = page
	f.data = data
	_, err := io.WriteString(w, "<html>"+page+"</html>")
	return err
}

type fixture struct {
	store    *memory.Store
	svc      *service.WellnessService
	renderer *fakeRenderer
	pages    *handler.PageHandler
	api      *handler.APIHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New(time.Hour)
	svc := service.NewWellnessService(store, catalog.Default(), logger)
	r := &fakeRenderer{}
	return &fixture{
		store:    store,
		svc:      svc,
		renderer: r,
		pages:    handler.NewPageHandler(svc, r, logger),
		api:      handler.NewAPIHandler(svc, logger),
	}
}

// withUser stores a record for sid with the given points.
func (f *fixture) withUser(t *testing.T, points int) {
	t.Helper()
	rec := model.NewUserRecord("Ash", 17, 4, 1)
	rec.Points = points
	require.NoError(t, f.store.Save(context.Background(), sid, rec))
}

func (f *fixture) user(t *testing.T) *model.UserRecord {
	t.Helper()
	rec, err := f.store.Load(context.Background(), sid)
	require.NoError(t, err)
	return rec
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(auth.WithSessionID(req.Context(), sid))
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHandleIndex(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()

	f.pages.HandleIndex(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, handler.PageLogin, f.renderer.page)
	page, ok := f.renderer.data.(handler.LoginPage)
	require.True(t, ok)
	assert.Len(t, page.Avatars, 10)
}

func TestHandleIndex_RenderFailure(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("template broke")
	rr := httptest.NewRecorder()

	f.pages.HandleIndex(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func registerRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req.WithContext(auth.WithSessionID(req.Context(), sid))
}

func TestHandleRegister(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()

	f.pages.HandleRegister(rr, registerRequest(url.Values{
		"name": {"Ash"}, "age": {"16"}, "screen_time": {"5.5"}, "avatar_id": {"2"},
	}))

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	rec := f.user(t)
	assert.Equal(t, 16, rec.Age)
	assert.Equal(t, 5.5, rec.ScreenTime)
	assert.Equal(t, 2, rec.AvatarID)

	// The dashboard now shows the chosen avatar.
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	f.pages.HandleDashboard(rr, req.WithContext(auth.WithSessionID(req.Context(), sid)))
	require.Equal(t, http.StatusOK, rr.Code)
	page, ok := f.renderer.data.(handler.DashboardPage)
	require.True(t, ok)
	assert.Equal(t, 2, page.CurrentAvatar.ID)
}

func TestHandleRegister_MissingField(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()

	f.pages.HandleRegister(rr, registerRequest(url.Values{
		"name": {"Ash"}, "age": {""}, "screen_time": {"5"}, "avatar_id": {"2"},
	}))

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Zero(t, f.store.Len())
}

func TestHandleDashboard_NoSessionRedirects(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	f.pages.HandleDashboard(rr, req.WithContext(auth.WithSessionID(req.Context(), sid)))

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Empty(t, f.renderer.page)
}

func TestHandleCompleteTask(t *testing.T) {
	f := newFixture(t)
	f.withUser(t, 0)

	rr := httptest.NewRecorder()
	f.api.HandleCompleteTask(rr, jsonRequest("/complete_task", `{"task_id": 2, "duration": 5}`))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{
		"success":             true,
		"points":              float64(10),
		"points_earned":       float64(10),
		"total_wellness_time": float64(5),
	}, decode(t, rr))

	rr = httptest.NewRecorder()
	f.api.HandleCompleteTask(rr, jsonRequest("/complete_task", `{"task_id": 2, "duration": 5}`))
	assert.Equal(t, float64(20), decode(t, rr)["points"])

	rec := f.user(t)
	assert.Equal(t, 10, rec.TotalWellnessTime)
	assert.Equal(t, 2, rec.TaskCompletions["task_2"])
}

func TestHandleCompleteTask_Defaults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"empty object", `{}`},
		{"falsy values", `{"task_id": 0, "duration": null}`},
		{"garbage values", `{"task_id": "abc", "duration": "soon"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.withUser(t, 3)

			rr := httptest.NewRecorder()
			f.api.HandleCompleteTask(rr, jsonRequest("/complete_task", tt.body))

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, float64(3), decode(t, rr)["points"])
			assert.Equal(t, 1, f.user(t).TaskCompletions["task_1"])
		})
	}
}

func TestHandleCompleteTask_NumericStringsAndFractions(t *testing.T) {
	f := newFixture(t)
	f.withUser(t, 0)

	rr := httptest.NewRecorder()
	f.api.HandleCompleteTask(rr, jsonRequest("/complete_task", `{"task_id": "4", "duration": 2.9}`))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(4), decode(t, rr)["points_earned"])
	assert.Equal(t, 1, f.user(t).TaskCompletions["task_4"])
}

func TestHandleCompleteTask_HugeDurationNeverGoesNegative(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`{"duration": 5e18}`, math.MaxInt},
		{`{"duration": 4e18}`, math.MaxInt},
		{`{"duration": 1e300}`, math.MaxInt},
		{`{"duration": "1e300"}`, math.MaxInt},
		{`{"duration": -1e300}`, 30},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			f := newFixture(t)
			f.withUser(t, 30)

			for i := 0; i < 2; i++ {
				rr := httptest.NewRecorder()
				f.api.HandleCompleteTask(rr, jsonRequest("/complete_task", tt.body))
				require.Equal(t, http.StatusOK, rr.Code)

				points, ok := decode(t, rr)["points"].(float64)
				require.True(t, ok)
				assert.GreaterOrEqual(t, points, float64(0))
			}
			assert.Equal(t, tt.want, f.user(t).Points)
		})
	}
}

func TestHandleCompleteTask_MalformedJSON(t *testing.T) {
	f := newFixture(t)
	f.withUser(t, 0)

	for _, body := range []string{`{"task_id":`, `[1, 2]`, `null`} {
		rr := httptest.NewRecorder()
		f.api.HandleCompleteTask(rr, jsonRequest("/complete_task", body))

		assert.Equal(t, http.StatusBadRequest, rr.Code, "body %q", body)
		assert.Equal(t, "Invalid JSON body", decode(t, rr)["error"])
	}
	assert.Zero(t, f.user(t).Points)
}

func TestHandleStudy(t *testing.T) {
	f := newFixture(t)
	f.withUser(t, 0)

	rr := httptest.NewRecorder()
	f.api.HandleCompleteStudy(rr, jsonRequest("/complete_study", `{"duration": 25}`))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"success": true, "points": float64(10)}, decode(t, rr))

	for _, want := range []float64{5, 0, 0} {
		rr = httptest.NewRecorder()
		f.api.HandleStopStudy(rr, jsonRequest("/stop_study", `not even json`))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, want, decode(t, rr)["points"])
	}
	assert.Equal(t, 1, f.user(t).StudySessions)
}

func TestHandleUpdateMostUsedApp(t *testing.T) {
	tests := []struct {
		body string
		want float64
		app  string
	}{
		{`{"app_name": "This App"}`, 20, "This App"},
		{`{"app_name": "TV"}`, 0, "TV"},
		{`{"app_name": 42}`, 0, ""},
		{`{}`, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			f := newFixture(t)
			f.withUser(t, 0)

			rr := httptest.NewRecorder()
			f.api.HandleUpdateMostUsedApp(rr, jsonRequest("/update_most_used_app", tt.body))

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, decode(t, rr)["points"])
			assert.Equal(t, tt.app, f.user(t).MostUsedApp)
		})
	}
}

func TestHandleChangeAvatar(t *testing.T) {
	f := newFixture(t)
	f.withUser(t, 0)

	rr := httptest.NewRecorder()
	f.api.HandleChangeAvatar(rr, jsonRequest("/change_avatar", `{"avatar_id": 3}`))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"success": true}, decode(t, rr))

	rr = httptest.NewRecorder()
	f.api.HandleChangeAvatar(rr, jsonRequest("/change_avatar", `{"avatar_id": 8}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Avatar not unlocked", decode(t, rr)["error"])
	assert.Equal(t, 3, f.user(t).AvatarID)

	// Missing id falls back to avatar 1, which is always unlocked.
	rr = httptest.NewRecorder()
	f.api.HandleChangeAvatar(rr, jsonRequest("/change_avatar", `{}`))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, f.user(t).AvatarID)
}

func TestAPI_NoSession(t *testing.T) {
	f := newFixture(t)

	routes := map[string]http.HandlerFunc{
		"/complete_task":        f.api.HandleCompleteTask,
		"/complete_study":       f.api.HandleCompleteStudy,
		"/stop_study":           f.api.HandleStopStudy,
		"/update_most_used_app": f.api.HandleUpdateMostUsedApp,
		"/change_avatar":        f.api.HandleChangeAvatar,
	}

	for path, h := range routes {
		for _, body := range []string{`{"duration": 5, "app_name": "this app", "avatar_id": 2}`, `{broken`} {
			t.Run(path, func(t *testing.T) {
				rr := httptest.NewRecorder()
				h(rr, jsonRequest(path, body))

				assert.Equal(t, http.StatusUnauthorized, rr.Code)
				assert.Equal(t, map[string]any{"error": "Not logged in"}, decode(t, rr))
				assert.Zero(t, f.store.Len())
			})
		}
	}
}

func TestHandleHealth(t *testing.T) {
	f := newFixture(t)
	h := handler.NewHealthHandler(f.svc, logger)
	rr := httptest.NewRecorder()

	h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, decode(t, rr))
}

func TestTemplateRenderer(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"base.html":      `{{define "base"}}<title>{{.Title}}</title>{{template "content" .}}{{end}}`,
		"login.html":     `{{define "content"}}{{range .Avatars}}[{{.Name}}]{{end}}{{end}}`,
		"dashboard.html": `{{define "content"}}{{.User.Name}} {{unlocked .User 4}} {{completions .User 1}}{{end}}`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	r, err := handler.NewTemplateRenderer(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, handler.PageLogin, handler.LoginPage{
		Title:   "Hi",
		Avatars: []model.Avatar{{ID: 1, Name: "Fox"}},
	}))
	assert.Equal(t, "<title>Hi</title>[Fox]", buf.String())

	rec := model.NewUserRecord("Ash", 17, 4, 1)
	rec.Points = 60
	rec.RecomputeUnlocks()
	rec.CompleteTask(1, 0)

	buf.Reset()
	require.NoError(t, r.Render(&buf, handler.PageDashboard, handler.DashboardPage{
		Title:         "Dash",
		DashboardView: &service.DashboardView{User: rec},
	}))
	assert.Equal(t, "<title>Dash</title>Ash true 1", buf.String())

	assert.Error(t, r.Render(&buf, "missing", nil))
}

func TestTemplateRenderer_MissingFiles(t *testing.T) {
	_, err := handler.NewTemplateRenderer(t.TempDir())
	assert.Error(t, err)
}
