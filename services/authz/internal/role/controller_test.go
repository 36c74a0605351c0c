package role

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goconsole/pkg/middleware"
	"github.com/goconsole/pkg/response"
	"github.com/goconsole/pkg/router"
	"github.com/goconsole/services/authz/internal/editor"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, readOnly bool) *fiber.App {
	t.Helper()
	svc, _ := newTestService(t)
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(middleware.ReadOnly(readOnly))
	router.Register(app, NewController(svc, editor.NewManager(svc, readOnly)))
	return app
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestMatrixEndpoint(t *testing.T) {
	app := newTestApp(t, false)

	status, env := doJSON(t, app, http.MethodGet, "/authz/matrix", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, response.CodeSuccess, env.Code)

	var data struct {
		Rows []struct {
			RoleKey string            `json:"roleKey"`
			Cells   map[string]string `json:"cells"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Rows)

	cells := map[string]map[string]string{}
	for _, r := range data.Rows {
		cells[r.RoleKey] = r.Cells
	}
	assert.Equal(t, "full", cells["super_admin"]["defects"])
	assert.Equal(t, "partial", cells["developer"]["defects"])
	assert.Equal(t, "none", cells["viewer"]["theme"])
}

func TestSessionFlow(t *testing.T) {
	app := newTestApp(t, false)

	status, env := doJSON(t, app, http.MethodPost, "/authz/sessions", nil)
	require.Equal(t, http.StatusOK, status)
	var view editor.View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	id := view.ID

	status, _ = doJSON(t, app, http.MethodPost, "/authz/sessions/"+id+"/open",
		OpenSessionRequest{RoleKey: "viewer", AppKey: "defects"})
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost, "/authz/sessions/"+id+"/save", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status, "nothing to save yet")

	status, env = doJSON(t, app, http.MethodPost, "/authz/sessions/"+id+"/toggle", ToggleRequest{Key: "defects:write"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, []string{"defects:read", "defects:write"}, view.Selection)
	assert.True(t, view.HasChanges)

	status, _ = doJSON(t, app, http.MethodPost, "/authz/sessions/"+id+"/toggle", ToggleRequest{Key: "theme:manage"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = doJSON(t, app, http.MethodPost, "/authz/sessions/"+id+"/save", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = doJSON(t, app, http.MethodGet, "/authz/roles/viewer/check?menu=defects&perm=defects:write", nil)
	require.Equal(t, http.StatusOK, status)
	var check CheckResponse
	require.NoError(t, json.Unmarshal(env.Data, &check))
	assert.True(t, check.Allowed)

	status, _ = doJSON(t, app, http.MethodDelete, "/authz/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, app, http.MethodGet, "/authz/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOpenBuiltInRoleRejected(t *testing.T) {
	app := newTestApp(t, false)

	_, env := doJSON(t, app, http.MethodPost, "/authz/sessions", nil)
	var view editor.View
	require.NoError(t, json.Unmarshal(env.Data, &view))

	status, _ := doJSON(t, app, http.MethodPost, "/authz/sessions/"+view.ID+"/open",
		OpenSessionRequest{RoleKey: "super_admin", AppKey: "defects"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodPut, "/authz/roles/super_admin", UpdateRequest{Permissions: []string{}})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestSaveCellConflict(t *testing.T) {
	app := newTestApp(t, false)

	status, env := doJSON(t, app, http.MethodPut, "/authz/roles/viewer/menus/theme",
		MenuSelectionRequest{Permissions: []string{"theme:manage"}, Version: 1})
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Version int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(2), data.Version)

	status, _ = doJSON(t, app, http.MethodPut, "/authz/roles/viewer/menus/theme",
		MenuSelectionRequest{Permissions: []string{}, Version: 1})
	assert.Equal(t, http.StatusConflict, status)
}

func TestReadOnlyMode(t *testing.T) {
	app := newTestApp(t, true)

	status, _ := doJSON(t, app, http.MethodGet, "/authz/roles", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost, "/authz/sessions", nil)
	assert.Equal(t, http.StatusForbidden, status)
}
