package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/sheetclash/sheetclash/go/internal/alerts"
	"github.com/sheetclash/sheetclash/go/internal/archive"
	"github.com/sheetclash/sheetclash/go/internal/content"
	"github.com/sheetclash/sheetclash/go/internal/gateway"
	"github.com/sheetclash/sheetclash/go/internal/hackathon"
	"github.com/sheetclash/sheetclash/go/internal/replicated"
	"github.com/sheetclash/sheetclash/go/internal/scoring"
	"github.com/sheetclash/sheetclash/go/internal/session"
	"github.com/sheetclash/sheetclash/go/internal/timer"
	"github.com/sheetclash/sheetclash/go/internal/validation"
)

type Services struct {
	App     *hackathon.App
	Gateway *gateway.Service
	Store   replicated.Store

	closers []func()
}

// setupServices wires the dependency chain:
// content catalog -> engines -> replicated store -> lifecycle -> app -> gateway.
func setupServices(ctx context.Context, config *Config) (*Services, error) {
	clock := clockwork.NewRealClock()

	catalog, err := loadCatalog(config)
	if err != nil {
		return nil, err
	}

	services := &Services{}

	kvConfig := replicated.DefaultKVConfig()
	kvConfig.URL = config.Nats.URL
	kvConfig.Bucket = config.Nats.Bucket
	kvStore, err := replicated.NewKVStore(ctx, kvConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect replicated store: %w", err)
	}
	services.Store = kvStore
	services.closers = append(services.closers, kvStore.Close)

	scorer := scoring.NewEngine(catalog, scoring.LogNotifier{}, clock)
	bonus := scoring.NewBonusCalculator()
	alertEngine := alerts.NewEngine(catalog)
	timerClock := timer.New(clock, catalog.TotalDuration())
	lifecycle := session.NewLifecycle(kvStore, clock)

	var archiver hackathon.Archiver
	var archiveRepo *archive.Repository
	if config.Archive.Enabled {
		database, err := setupDatabase()
		if err != nil {
			return nil, fmt.Errorf("failed to set up archive database: %w", err)
		}
		services.closers = append(services.closers, func() { database.Close() })

		archiveRepo = archive.NewRepository(database)
		if err := archiveRepo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		archiver = archiveRepo
	} else {
		log.Info().Msg("session archiving disabled")
	}

	validator := validation.NewEngine(catalog)
	app := hackathon.NewApp(catalog, validator, scorer, bonus, alertEngine, timerClock, lifecycle, archiver, clock)
	services.App = app

	// Rejoin the session that was live before a restart, if any.
	if err := app.Resume(ctx); err != nil {
		log.Info().Err(err).Msg("no session to resume")
	}

	services.Gateway = gateway.NewService(gateway.DefaultConfig(), app, clock)
	if archiveRepo != nil {
		services.Gateway.EnableHistory(archiveRepo)
	}
	return services, nil
}

func loadCatalog(config *Config) (*content.Catalog, error) {
	if config.Content.CatalogPath == "" {
		log.Info().Msg("using built-in exercise catalog")
		return content.Default(), nil
	}
	catalog, err := content.Load(config.Content.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load exercise catalog: %w", err)
	}
	log.Info().
		Str("path", config.Content.CatalogPath).
		Int("levels", catalog.TotalLevels()).
		Msg("exercise catalog loaded")
	return catalog, nil
}

// Close releases service resources in reverse construction order.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
