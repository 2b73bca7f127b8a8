// Package server provides the public entry point for initializing the
// Bottega ordering service.
//
// This package exists in pkg/ (not internal/) so that deployment
// wrappers can import it and compose the full server with their own
// middleware.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":10000", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bottegalabs/bottega/internal/agent"
	"github.com/bottegalabs/bottega/internal/api"
	"github.com/bottegalabs/bottega/internal/api/handlers"
	"github.com/bottegalabs/bottega/internal/config"
	"github.com/bottegalabs/bottega/internal/payments"
	"github.com/bottegalabs/bottega/internal/restaurant"
	"github.com/bottegalabs/bottega/internal/sms"
	"github.com/bottegalabs/bottega/internal/telemetry"
	"github.com/bottegalabs/bottega/internal/threads"
	"github.com/bottegalabs/bottega/internal/tools"
)

// Server holds the initialized Bottega ordering service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Config is the loaded service configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown. It closes
	// both stores and flushes telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components and returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	telemetryShutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	// Restaurant database (customers, menu, cart, orders)
	restaurantStore, err := restaurant.Open(cfg.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open restaurant store: %w", err)
	}
	if err := restaurantStore.SeedMenu(ctx, cfg.Database.MenuPath); err != nil {
		log.Warn().Err(err).Str("path", cfg.Database.MenuPath).Msg("Menu seeding failed")
	}
	log.Info().Str("path", cfg.Database.SQLitePath).Msg("Restaurant store initialized")

	// Thread store: Postgres when configured, in-memory otherwise
	var threadStore threads.Store
	if cfg.Database.PostgresURL != "" {
		threadStore, err = threads.NewPostgresStore(ctx, cfg.Database.PostgresURL)
		if err != nil {
			restaurantStore.Close()
			return nil, fmt.Errorf("open thread store: %w", err)
		}
	} else {
		threadStore = threads.NewMemoryStore(cfg.Database.DataDir)
	}

	// Notifications and payments degrade to no-ops when unconfigured
	var sender sms.Sender = sms.Disabled{}
	if cfg.SMS.AccountSID != "" {
		sender = sms.NewTwilioDriver(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber)
		log.Info().Msg("Twilio SMS driver initialized")
	} else {
		log.Warn().Msg("TWILIO_ACCOUNT_SID not set, SMS disabled")
	}

	var links payments.LinkCreator = payments.Disabled{}
	if cfg.Payments.SecretKey != "" {
		links = payments.NewStripeDriver(cfg.Payments.SecretKey, cfg.Payments.RedirectURL)
		log.Info().Msg("Stripe payments driver initialized")
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, payment links disabled")
	}

	// Tool registry
	toolkit := tools.NewToolkit(restaurantStore, sender, links, cfg.SMS.RestaurantPhone)
	defs := tools.MarkSensitive(toolkit.Definitions(), cfg.Agent.SensitiveTools)
	registry := tools.NewRegistry()
	if err := tools.RegisterAll(registry, defs); err != nil {
		restaurantStore.Close()
		threadStore.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}
	log.Info().Int("tools", registry.Len()).Strs("sensitive", cfg.Agent.SensitiveTools).Msg("Tool registry initialized")

	// Conversational agent
	reasoner := agent.NewAnthropicReasoner(cfg.Agent.Model)
	bot := agent.New(reasoner, registry, threadStore, cfg.Agent.MaxTurns)
	log.Info().Str("model", cfg.Agent.Model).Int("max_turns", cfg.Agent.MaxTurns).Msg("Agent initialized")

	h := handlers.New(bot, threadStore)
	router := api.NewRouter(cfg, h)

	shutdown := func(ctx context.Context) error {
		if err := threadStore.Close(); err != nil {
			log.Warn().Err(err).Msg("Thread store close failed")
		}
		if err := restaurantStore.Close(); err != nil {
			log.Warn().Err(err).Msg("Restaurant store close failed")
		}
		return telemetryShutdown(ctx)
	}

	return &Server{
		Handler:      router,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
