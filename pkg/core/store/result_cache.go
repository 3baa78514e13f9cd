package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fusion_costing/pkg/core/scenario"

	"github.com/google/uuid"
)

// ResultCache keeps scenario results in a hybrid vault: DB (primary) and
// file system (fallback/local).
type ResultCache struct {
	repo    *ScenarioRepo
	fileDir string
}

// NewResultCache creates a cache. repo may be nil for a file-only cache; when
// both are empty the cache defaults to .cache/results.
func NewResultCache(repo *ScenarioRepo, dir string) *ResultCache {
	if repo != nil && repo.pool == nil {
		repo = nil
	}
	if repo == nil && dir == "" {
		dir = filepath.Join(".cache", "results")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[STORE] Check ResultCache dir: %v\n", err)
		}
	}
	return &ResultCache{repo: repo, fileDir: dir}
}

// CacheEntry is the file form of a cached result.
type CacheEntry struct {
	RunID     string           `json:"run_id"`
	Name      string           `json:"name"`
	ConfigKey string           `json:"config_key"`
	SavedAt   time.Time        `json:"saved_at"`
	Result    *scenario.Result `json:"result"`
}

// Get retrieves a result by run id. A miss returns nil, nil.
func (c *ResultCache) Get(ctx context.Context, runID string) (*scenario.Result, error) {
	// 1. Try DB (run ids are UUIDs; anything else can only be a file)
	if _, perr := uuid.Parse(runID); c.repo != nil && perr == nil {
		res, err := c.repo.Load(ctx, runID)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	// 2. Try File System
	if c.fileDir != "" {
		entry, err := c.loadEntry(c.runPath(runID))
		if err != nil {
			return nil, nil
		}
		return entry.Result, nil
	}
	return nil, nil
}

// GetByConfig returns the newest stored result for an identical configuration.
func (c *ResultCache) GetByConfig(ctx context.Context, cfg scenario.Config) (*scenario.Result, error) {
	key, err := ConfigKey(cfg)
	if err != nil {
		return nil, err
	}
	if c.repo != nil {
		res, err := c.repo.LoadByConfigKey(ctx, key)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	if c.fileDir != "" {
		return c.scanFileCache(key)
	}
	return nil, nil
}

// Save stores a result in every configured tier.
func (c *ResultCache) Save(ctx context.Context, res *scenario.Result) error {
	// 1. Save to DB
	if c.repo != nil {
		if err := c.repo.Save(ctx, res); err != nil {
			return err
		}
	}

	// 2. Save to File
	if c.fileDir != "" {
		key, err := ConfigKey(res.Config)
		if err != nil {
			return err
		}
		entry := CacheEntry{
			RunID:     res.RunID,
			Name:      res.Name,
			ConfigKey: key,
			SavedAt:   time.Now().UTC(),
			Result:    res,
		}
		fileBytes, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal cache entry: %w", err)
		}
		if err := os.WriteFile(c.runPath(res.RunID), fileBytes, 0644); err != nil {
			return fmt.Errorf("failed to save to file cache: %w", err)
		}
	}
	return nil
}

// Internal File Helpers

func (c *ResultCache) runPath(runID string) string {
	return filepath.Join(c.fileDir, filepath.Base(runID)+".json")
}

func (c *ResultCache) scanFileCache(key string) (*scenario.Result, error) {
	files, err := os.ReadDir(c.fileDir)
	if err != nil {
		return nil, nil
	}

	var newest *CacheEntry
	for _, f := range files {
		if filepath.Ext(f.Name()) != ".json" {
			continue
		}
		entry, err := c.loadEntry(filepath.Join(c.fileDir, f.Name()))
		if err != nil || entry.ConfigKey != key {
			continue
		}
		if newest == nil || entry.SavedAt.After(newest.SavedAt) {
			newest = entry
		}
	}
	if newest == nil {
		return nil, nil
	}
	return newest.Result, nil
}

func (c *ResultCache) loadEntry(path string) (*CacheEntry, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(bytes, &entry); err != nil {
		return nil, err
	}
	if entry.Result == nil {
		return nil, fmt.Errorf("cache entry %s has no result", path)
	}
	return &entry, nil
}
