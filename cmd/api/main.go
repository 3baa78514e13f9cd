package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"fusion_costing/pkg/api/scenario"
	"fusion_costing/pkg/core/qmodel"
	coreScenario "fusion_costing/pkg/core/scenario"
	"fusion_costing/pkg/core/store"
)

func main() {
	// Load environment variables
	env := coreScenario.LoadEnv()

	// Shared Q memo cache for every request
	qcache, err := qmodel.NewLRUCache(env.QCacheSize)
	if err != nil {
		fmt.Printf("[FATAL] Q cache: %v\n", err)
		os.Exit(1)
	}
	estimator := qmodel.NewEstimator(qcache)

	// Database is optional; results fall back to the file cache
	var repo *store.ScenarioRepo
	var sweeps *store.SweepRepo
	if env.DatabaseURL != "" {
		if err := store.InitDB(context.Background(), env.DatabaseURL); err != nil {
			fmt.Printf("[WARNING] Database unavailable, using file cache only: %v\n", err)
		} else {
			defer store.Close()
			repo = store.NewScenarioRepo(store.GetPool())
			sweeps = store.NewSweepRepo(store.GetPool())
			fmt.Println("[API] Connected to database")
		}
	}
	cache := store.NewResultCache(repo, env.CacheDir)

	// Scenario endpoints
	handler := scenario.NewHandler(estimator, cache, sweeps, env.SweepWorkers)
	http.HandleFunc("/api/scenario/evaluate", handler.HandleEvaluate)
	http.HandleFunc("/api/scenario/sweep", handler.HandleSweep)
	http.HandleFunc("/api/scenario/result", handler.HandleResult)
	http.HandleFunc("/api/materials", handler.HandleMaterials)

	fmt.Printf("API server starting on %s...\n", env.APIAddr)
	fmt.Println("  - POST /api/scenario/evaluate")
	fmt.Println("  - POST /api/scenario/sweep")
	fmt.Println("  - GET  /api/scenario/result?id=")
	fmt.Println("  - GET  /api/materials")

	if err := http.ListenAndServe(env.APIAddr, nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
