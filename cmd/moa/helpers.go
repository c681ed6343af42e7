package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/moamoa/moa-engine/internal/autodeposit"
	"github.com/moamoa/moa-engine/internal/bank"
	"github.com/moamoa/moa-engine/internal/common"
	"github.com/moamoa/moa-engine/internal/config"
	"github.com/moamoa/moa-engine/internal/dedup"
	"github.com/moamoa/moa-engine/internal/engine"
	"github.com/moamoa/moa-engine/internal/learn"
	"github.com/moamoa/moa-engine/internal/match"
	"github.com/moamoa/moa-engine/internal/parser"
	"github.com/moamoa/moa-engine/internal/rates"
	"github.com/moamoa/moa-engine/internal/service"
	"github.com/moamoa/moa-engine/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/moa/moa.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not open database at %s", dbPath), err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initDetector wires a duplicate detector over the given store.
func initDetector(store service.Storage) (*dedup.Detector, error) {
	registry, err := bank.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build bank registry: %w", err)
	}
	return dedup.NewDetector(store, registry), nil
}

// initEngine wires the full notification pipeline.
func initEngine(store service.Storage) (*engine.Engine, error) {
	registry, err := bank.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build bank registry: %w", err)
	}

	ratesURL := viper.GetString("rates.url")
	p := parser.New(registry, rates.NewClient(ratesURL))
	d := dedup.NewDetector(store, registry)
	o := autodeposit.New(store, match.NewMatcher(), learn.NewApplier(store))

	return engine.New(store, p, d, o), nil
}
