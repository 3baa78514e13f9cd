package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fusion_costing/pkg/core/scenario"
	"fusion_costing/pkg/core/sweep"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluated(t *testing.T) *scenario.Result {
	t.Helper()
	res, err := scenario.Evaluate(scenario.Config{Name: "store-a", ReactorType: "MFE", FusionPowerMW: 500}, nil)
	require.NoError(t, err)
	return res
}

func TestConfigKey_Deterministic(t *testing.T) {
	a := scenario.Config{Name: "one", ReactorType: "MFE", FusionPowerMW: 500}
	b := scenario.Config{Name: "two", ReactorType: "MFE", FusionPowerMW: 500, MajorRadius: 3.3}
	c := scenario.Config{ReactorType: "MFE", FusionPowerMW: 600}

	ka, err := ConfigKey(a)
	require.NoError(t, err)
	kb, err := ConfigKey(b)
	require.NoError(t, err)
	kc, err := ConfigKey(c)
	require.NoError(t, err)

	assert.Equal(t, ka, kb, "explicit default and unset must match")
	assert.NotEqual(t, ka, kc)
}

func TestResultCache_FileTier(t *testing.T) {
	ctx := context.Background()
	cache := NewResultCache(nil, t.TempDir())
	res := evaluated(t)

	miss, err := cache.Get(ctx, res.RunID)
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, cache.Save(ctx, res))

	got, err := cache.Get(ctx, res.RunID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, res.TotalEPC, got.TotalEPC)
	assert.True(t, got.Check().AllPassed)

	byCfg, err := cache.GetByConfig(ctx, scenario.Config{ReactorType: "MFE", FusionPowerMW: 500})
	require.NoError(t, err)
	require.NotNil(t, byCfg)
	assert.Equal(t, res.RunID, byCfg.RunID)

	other, err := cache.GetByConfig(ctx, scenario.Config{ReactorType: "IFE", FusionPowerMW: 1000})
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestResultCache_IgnoresCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{not json"), 0644))
	cache := NewResultCache(nil, dir)

	res, err := cache.GetByConfig(context.Background(), scenario.Config{ReactorType: "MFE", FusionPowerMW: 500})
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = cache.Get(context.Background(), "junk")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestRepos_RequirePool(t *testing.T) {
	ctx := context.Background()
	_, err := NewScenarioRepo(nil).Load(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, NewSweepRepo(nil).Save(ctx, &sweep.Result{}))
}

// Postgres round trips run only against a real database.
func TestPostgres_RoundTrip(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	require.NoError(t, InitDB(ctx, dbURL))
	defer Close()

	repo := NewScenarioRepo(GetPool())
	res := evaluated(t)
	require.NoError(t, repo.Save(ctx, res))

	got, err := repo.Load(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.TotalEPC, got.TotalEPC)
	assert.True(t, got.Check().AllPassed)

	_, err = repo.Load(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, ErrNotFound))

	list, err := repo.List(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	sw, err := sweep.Run(ctx, scenario.Config{ReactorType: "MFE", FusionPowerMW: 500}, sweep.Options{
		Drivers: []sweep.Driver{sweep.DriverPowerPrice},
		Bands:   []float64{-0.1, 0.1},
	})
	require.NoError(t, err)
	sweeps := NewSweepRepo(GetPool())
	require.NoError(t, sweeps.Save(ctx, sw))
	outcomes, err := sweeps.LoadOutcomes(ctx, sw.SweepID)
	require.NoError(t, err)
	assert.Len(t, outcomes, 3)
	assert.Equal(t, sw.Outcomes[sweep.BaseKey].NPV, outcomes[sweep.BaseKey].NPV)
}
