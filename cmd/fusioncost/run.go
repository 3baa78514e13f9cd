package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"fusion_costing/pkg/core/qmodel"
	"fusion_costing/pkg/core/report"
	"fusion_costing/pkg/core/scenario"
	"fusion_costing/pkg/core/store"
	"fusion_costing/pkg/core/sweep"
)

type runOptions struct {
	json     bool
	markdown bool
	save     bool
}

type sweepOptions struct {
	workers int
	drivers []string
	bands   []float64
	json    bool
	save    bool
}

// openStore connects the database when DATABASE_URL is set. The returned
// repo is nil for a file-only setup.
func openStore(ctx context.Context, env scenario.Env) (*store.ScenarioRepo, *store.SweepRepo) {
	if env.DatabaseURL == "" {
		return nil, nil
	}
	if err := store.InitDB(ctx, env.DatabaseURL); err != nil {
		fmt.Printf("[WARNING] Database unavailable, using file cache only: %v\n", err)
		return nil, nil
	}
	return store.NewScenarioRepo(store.GetPool()), store.NewSweepRepo(store.GetPool())
}

func newEstimator(env scenario.Env) (*qmodel.Estimator, error) {
	cache, err := qmodel.NewLRUCache(env.QCacheSize)
	if err != nil {
		return nil, err
	}
	return qmodel.NewEstimator(cache), nil
}

func runScenario(path string, opts runOptions) error {
	cfg, err := scenario.Load(path)
	if err != nil {
		return err
	}
	res, err := scenario.Evaluate(cfg, nil)
	if err != nil {
		return err
	}

	if opts.save {
		ctx := context.Background()
		env := scenario.LoadEnv()
		repo, _ := openStore(ctx, env)
		defer store.Close()
		if err := store.NewResultCache(repo, env.CacheDir).Save(ctx, res); err != nil {
			return fmt.Errorf("saving result: %w", err)
		}
		fmt.Printf("[STORE] Saved %s\n", res.RunID)
	}

	switch {
	case opts.json:
		return printJSON(res)
	case opts.markdown:
		md := report.Markdown(res)
		if err := report.Validate(md); err != nil {
			return err
		}
		fmt.Print(md)
	default:
		printResult(res)
	}
	return nil
}

func runSweep(ctx context.Context, path string, opts sweepOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := scenario.Load(path)
	if err != nil {
		return err
	}
	env := scenario.LoadEnv()
	est, err := newEstimator(env)
	if err != nil {
		return err
	}

	so := sweep.Options{Workers: opts.workers, Bands: opts.bands, Estimator: est}
	if so.Workers <= 0 {
		so.Workers = env.SweepWorkers
	}
	for _, name := range opts.drivers {
		d, err := sweep.ParseDriver(name)
		if err != nil {
			return err
		}
		so.Drivers = append(so.Drivers, d)
	}

	res, err := sweep.Run(ctx, cfg, so)
	if err != nil {
		return err
	}

	if opts.save {
		_, sweeps := openStore(ctx, env)
		defer store.Close()
		if sweeps == nil {
			return fmt.Errorf("saving a sweep requires DATABASE_URL")
		}
		if err := sweeps.Save(ctx, res); err != nil {
			return fmt.Errorf("saving sweep: %w", err)
		}
	}

	if opts.json {
		return printJSON(res)
	}
	printSweep(res)
	return nil
}

func runValidate(path string) error {
	cfg, err := scenario.Load(path)
	if err != nil {
		return err
	}
	r := cfg.WithDefaults().Validate()
	printValidationReport(r)
	if !r.Valid {
		os.Exit(1)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
