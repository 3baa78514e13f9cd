package scenario

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fusion_costing/pkg/core/costing"
	"fusion_costing/pkg/core/qmodel"
	"fusion_costing/pkg/core/store"
	"fusion_costing/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	cache, err := qmodel.NewLRUCache(128)
	require.NoError(t, err)
	return NewHandler(qmodel.NewEstimator(cache), store.NewResultCache(nil, t.TempDir()), nil, 4)
}

func post(h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandleEvaluate_CachesByConfig(t *testing.T) {
	h := newHandler(t)
	// trailing comma is repaired
	body := `{"name": "api-a", "reactor_type": "MFE", "fusion_power_mw": 500,}`

	rec := post(h.HandleEvaluate, "/api/scenario/evaluate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.NotNil(t, first.Result)
	assert.False(t, first.Cached)
	assert.NotEmpty(t, first.Display.TotalEPC)
	assert.Contains(t, first.Report, "## Costs")

	rec = post(h.HandleEvaluate, "/api/scenario/evaluate", `{"reactor_type": "MFE", "fusion_power_mw": 500}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var second EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result.RunID, second.Result.RunID)

	rec = post(h.HandleEvaluate, "/api/scenario/evaluate?fresh=1", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var third EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &third))
	assert.False(t, third.Cached)
	assert.NotEqual(t, first.Result.RunID, third.Result.RunID)
}

func TestHandleEvaluate_Errors(t *testing.T) {
	h := newHandler(t)

	rec := post(h.HandleEvaluate, "/api/scenario/evaluate", `{"reactor_type": "MFE", "fusion_power_mw": 0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h.HandleEvaluate, "/api/scenario/evaluate", `{"reactor_type": "MFE", "fusion_power_mw": 500, "structure_material": "unobtainium"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/scenario/evaluate", nil)
	rr := httptest.NewRecorder()
	h.HandleEvaluate(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	req = httptest.NewRequest(http.MethodOptions, "/api/scenario/evaluate", nil)
	rr = httptest.NewRecorder()
	h.HandleEvaluate(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleResult(t *testing.T) {
	h := newHandler(t)
	rec := post(h.HandleEvaluate, "/api/scenario/evaluate", `{"name": "stored", "reactor_type": "IFE", "fusion_power_mw": 1000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ev EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))

	get := func(target string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.HandleResult(rr, httptest.NewRequest(http.MethodGet, target, nil))
		return rr
	}

	rr := get("/api/scenario/result?id=" + ev.Result.RunID)
	require.Equal(t, http.StatusOK, rr.Code)
	var got EvaluateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, ev.Result.TotalEPC, got.Result.TotalEPC)
	assert.True(t, got.Result.Check().AllPassed)

	rr = get("/api/scenario/result?format=markdown&id=" + ev.Result.RunID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "# Scenario stored")

	assert.Equal(t, http.StatusNotFound, get("/api/scenario/result?id=missing").Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/scenario/result").Code)
}

func TestHandleSweep(t *testing.T) {
	h := newHandler(t)
	body := `{"base": {"reactor_type": "MFE", "fusion_power_mw": 500}, "drivers": ["power_price"], "bands": [-0.1, 0.1]}`

	rec := post(h.HandleSweep, "/api/scenario/sweep", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SweepResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Result.Outcomes, 3)
	require.Len(t, resp.Tornado, 1)
	assert.Greater(t, resp.Tornado[0].HighNPV, resp.Tornado[0].LowNPV)

	rec = post(h.HandleSweep, "/api/scenario/sweep", `{"base": {"fusion_power_mw": 500}, "drivers": ["weather"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMaterials(t *testing.T) {
	h := newHandler(t)
	rr := httptest.NewRecorder()
	h.HandleMaterials(rr, httptest.NewRequest(http.MethodGet, "/api/materials", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp MaterialsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Materials)
	assert.Contains(t, resp.BlanketTypes, "PbLi")
	assert.Equal(t, []models.Technology{models.TechIFE}, resp.RestrictedAccounts[costing.CodeDriver])
	assert.NotContains(t, resp.RestrictedAccounts, costing.CodeFirstWall)
}
