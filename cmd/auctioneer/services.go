package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/draftroom/auctioneer/internal/auction"
	"github.com/draftroom/auctioneer/internal/auth"
	"github.com/draftroom/auctioneer/internal/bus"
	"github.com/draftroom/auctioneer/internal/catalog"
	"github.com/draftroom/auctioneer/internal/gateway"
	"github.com/draftroom/auctioneer/internal/ledger"
)

type Services struct {
	Engine  *auction.Engine
	Gateway *gateway.Service
	Relay   *bus.Relay // nil when NATS is disabled
}

func setupServices(ctx context.Context, config *Config) (*Services, error) {
	// Catalog -> ledger -> engine -> admin gate -> gateway

	repo, err := setupCatalog(config)
	if err != nil {
		return nil, err
	}
	players, err := repo.Players(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load player catalog: %w", err)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("player catalog is empty")
	}

	startingBudget, err := decimal.NewFromString(config.Auction.StartingBudget)
	if err != nil {
		return nil, fmt.Errorf("invalid starting budget %q: %w", config.Auction.StartingBudget, err)
	}

	led := ledger.New(startingBudget)
	engine := auction.NewEngine(players, led, clockwork.NewRealClock())
	admin := auction.NewAdminGate(engine)
	authSvc := auth.NewService(config.Users)

	gatewaySvc := gateway.NewService(gateway.DefaultConfig(), engine, admin, authSvc)

	services := &Services{
		Engine:  engine,
		Gateway: gatewaySvc,
	}

	if config.NATS.Enabled {
		relayConfig := bus.DefaultConfig()
		if config.NATS.URL != "" {
			relayConfig.URL = config.NATS.URL
		}
		if config.NATS.SubjectPrefix != "" {
			relayConfig.SubjectPrefix = config.NATS.SubjectPrefix
		}
		relay, err := bus.NewRelay(relayConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event relay: %w", err)
		}
		engine.AddSink(relay)
		services.Relay = relay
	}

	return services, nil
}

func setupCatalog(config *Config) (catalog.Repository, error) {
	switch config.Catalog.Source {
	case "yaml":
		if config.Catalog.Path == "" {
			return nil, fmt.Errorf("catalog.path is required for the yaml source")
		}
		return catalog.NewYAMLRepository(config.Catalog.Path), nil
	case "postgres":
		db, err := setupDatabase()
		if err != nil {
			return nil, err
		}
		return catalog.NewPostgresRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", config.Catalog.Source)
	}
}
