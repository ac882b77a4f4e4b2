package resource

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"resource-ledger/pkg/authz"
	"resource-ledger/pkg/httpapi"
	"resource-ledger/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, ledgerSvc, _ := newTestService(t)
	policy, err := authz.NewPolicy(map[string][]string{
		"viewer": {"read"},
		"admin":  {"admin"},
	})
	require.NoError(t, err)

	r := gin.New()
	RegisterRoutes(httpapi.NewAPI(r), policy, NewHandler(HandlerParams{Service: svc, Ledger: ledgerSvc}))
	return r
}

func request(r http.Handler, method, path, roles string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderActorID, "user-1")
	req.Header.Set(middleware.HeaderActorRoles, roles)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerCreateAndRead(t *testing.T) {
	r := newTestRouter(t)

	w := request(r, http.MethodPost, "/api/v1/resources", "viewer", CreateParams{Name: "Water", Category: CategoryRaw})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = request(r, http.MethodPost, "/api/v1/resources", "admin", CreateParams{Name: "Water", Category: CategoryRaw, QuantityHagga: 40})
	require.Equal(t, http.StatusCreated, w.Code)

	var created Resource
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "user-1", created.LastUpdatedBy)

	w = request(r, http.MethodGet, "/api/v1/resources/"+created.ID, "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodGet, "/api/v1/resources/"+created.ID+"/history?days=0", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Data, 1)

	w = request(r, http.MethodGet, "/api/v1/resources/"+created.ID+"/history?days=-1", "viewer", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, http.MethodGet, "/api/v1/resources/missing", "viewer", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = request(r, http.MethodPut, "/api/v1/resources/"+created.ID+"/target", "admin", map[string]any{"target_quantity": -3})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
