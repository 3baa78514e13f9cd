package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fusion_costing/pkg/core/costing"
	"fusion_costing/pkg/core/materials"
	"fusion_costing/pkg/core/qmodel"
	"fusion_costing/pkg/core/report"
	coreScenario "fusion_costing/pkg/core/scenario"
	"fusion_costing/pkg/core/store"
	"fusion_costing/pkg/core/sweep"
	"fusion_costing/pkg/core/utils"
	"fusion_costing/pkg/models"
)

// maxBody caps request payloads.
const maxBody = 1 << 20

// Handler holds dependencies for scenario endpoints
type Handler struct {
	Estimator    *qmodel.Estimator
	Cache        *store.ResultCache
	Sweeps       *store.SweepRepo // nil without a database
	SweepWorkers int
	SweepTimeout time.Duration
}

// NewHandler creates a new scenario handler
func NewHandler(est *qmodel.Estimator, cache *store.ResultCache, sweeps *store.SweepRepo, workers int) *Handler {
	return &Handler{
		Estimator:    est,
		Cache:        cache,
		Sweeps:       sweeps,
		SweepWorkers: workers,
		SweepTimeout: 5 * time.Minute,
	}
}

// Display carries rounded headline figures for the dashboard.
type Display struct {
	TotalEPC     string `json:"total_epc_musd"`
	TotalCapital string `json:"total_capital_musd"`
	CostPerKW    string `json:"cost_per_kw"`
	NetPowerMW   string `json:"net_power_mw"`
	NPV          string `json:"npv_musd"`
	LCOE         string `json:"lcoe"`
}

type EvaluateResponse struct {
	Result  *coreScenario.Result `json:"result"`
	Display Display              `json:"display"`
	Report  string               `json:"report_markdown"`
	Cached  bool                 `json:"cached"`
}

type SweepRequest struct {
	Base    coreScenario.Config `json:"base"`
	Drivers []string            `json:"drivers"`
	Bands   []float64           `json:"bands"`
	Workers int                 `json:"workers"`
}

type SweepResponse struct {
	Result  *sweep.Result `json:"result"`
	Tornado []sweep.Bar   `json:"tornado"`
}

// MaterialsResponse also lists the accounts that exist for one technology only.
type MaterialsResponse struct {
	Materials          []materials.Material           `json:"materials"`
	BlanketTypes       []string                       `json:"blanket_types"`
	RestrictedAccounts map[string][]models.Technology `json:"restricted_accounts"`
}

func cors(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrConfiguration),
		errors.Is(err, models.ErrUnknownMaterial),
		errors.Is(err, models.ErrUnknownTechnology),
		errors.Is(err, models.ErrInvalidGeometry):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("[API] Failed to encode response: %v\n", err)
	}
}

func displayOf(res *coreScenario.Result) Display {
	d := Display{
		TotalEPC:     report.Fixed(res.TotalEPC, 1),
		TotalCapital: report.Fixed(res.TotalCapital, 1),
		CostPerKW:    report.Fixed(res.CostPerKW, 0),
		NetPowerMW:   report.Fixed(res.PowerBalance.PElectricNet, 1),
		NPV:          report.Fixed(res.Financial.NPV, 1),
		LCOE:         "undefined",
	}
	if res.Financial.LCOE != nil {
		d.LCOE = report.Fixed(*res.Financial.LCOE, 2)
	}
	return d
}

// HandleEvaluate runs one scenario. The body is a scenario config in JSON;
// hand-edited payloads are repaired. ?fresh=1 bypasses the result cache.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cfg, err := coreScenario.Parse(body, coreScenario.FormatJSON)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	// 1. Check the cache for an identical configuration
	if h.Cache != nil && r.URL.Query().Get("fresh") == "" {
		cached, err := h.Cache.GetByConfig(ctx, cfg)
		if err != nil {
			fmt.Printf("[WARNING] Result cache lookup failed: %v\n", err)
		} else if cached != nil {
			fmt.Printf("[API] CACHE HIT %s\n", cached.RunID)
			writeJSON(w, EvaluateResponse{Result: cached, Display: displayOf(cached), Report: report.Markdown(cached), Cached: true})
			return
		}
	}

	// 2. Evaluate
	res, err := coreScenario.Evaluate(cfg, h.Estimator)
	if err != nil {
		fmt.Printf("[API] Evaluate failed: %v\n", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	// 3. Persist
	if h.Cache != nil {
		if err := h.Cache.Save(ctx, res); err != nil {
			fmt.Printf("[WARNING] Failed to cache result %s: %v\n", res.RunID, err)
		}
	}
	writeJSON(w, EvaluateResponse{Result: res, Display: displayOf(res), Report: report.Markdown(res)})
}

// HandleSweep runs a sensitivity sweep around a base config.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var req SweepRequest
	if _, err := utils.SmartParse(string(body), &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	opts := sweep.Options{Workers: h.SweepWorkers, Bands: req.Bands, Estimator: h.Estimator}
	if req.Workers > 0 && (h.SweepWorkers == 0 || req.Workers < h.SweepWorkers) {
		opts.Workers = req.Workers
	}
	for _, name := range req.Drivers {
		d, err := sweep.ParseDriver(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		opts.Drivers = append(opts.Drivers, d)
	}

	ctx := r.Context()
	if h.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.SweepTimeout)
		defer cancel()
	}
	res, err := sweep.Run(ctx, req.Base, opts)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if h.Sweeps != nil {
		if err := h.Sweeps.Save(ctx, res); err != nil {
			fmt.Printf("[WARNING] Failed to store sweep %s: %v\n", res.SweepID, err)
		}
	}
	writeJSON(w, SweepResponse{Result: res, Tornado: res.Tornado()})
}

// HandleResult serves a stored result by ?id=. ?format=markdown returns the
// summary instead of JSON.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET") {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if h.Cache == nil {
		http.Error(w, "result storage not configured", http.StatusServiceUnavailable)
		return
	}
	res, err := h.Cache.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if res == nil {
		http.Error(w, fmt.Sprintf("Result not found: %s", id), http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, report.Markdown(res))
		return
	}
	writeJSON(w, EvaluateResponse{Result: res, Display: displayOf(res), Cached: true})
}

// HandleMaterials lists the material table and the accepted blanket types.
func (h *Handler) HandleMaterials(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET") {
		return
	}
	writeJSON(w, MaterialsResponse{
		Materials:          materials.All(),
		BlanketTypes:       costing.BlanketTypes(),
		RestrictedAccounts: costing.Applicability(),
	})
}
