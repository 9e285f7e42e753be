// SPDX-License-Identifier: Apache-2.0

// Package main provides the entrypoint for the Switchyard request
// router. This file stays minimal; wiring lives in run().
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbrtn/switchyard/pkg/a2a/agentcard"
	"github.com/mbrtn/switchyard/pkg/a2a/jsonrpc"
	"github.com/mbrtn/switchyard/pkg/a2a/server"
	"github.com/mbrtn/switchyard/pkg/config"
	"github.com/mbrtn/switchyard/pkg/registry"
	"github.com/mbrtn/switchyard/pkg/router"
	"github.com/mbrtn/switchyard/pkg/telemetry"
)

const version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("switchyard: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.ConfigureSlog(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig("switchyard", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	metrics, err := telemetry.NewRouterMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	reg := registry.New(registry.WithLogger(logger))
	if cfg.Registry.Manifest != "" {
		count, err := reg.RegisterManifest(cfg.Registry.Manifest)
		if err != nil {
			return fmt.Errorf("load manifest %s: %w", cfg.Registry.Manifest, err)
		}
		logger.Info("registry.manifest.loaded",
			slog.String("path", cfg.Registry.Manifest),
			slog.Int("agents", count))
	}
	reg.Bootstrap(ctx, cfg.Registry.BootstrapEndpoints)

	forwarder := router.NewHTTPForwarder(
		router.WithForwarderHTTPClient(&http.Client{Timeout: cfg.Router.Forward.RequestTimeout}),
		router.WithPolling(cfg.Router.Forward.PollInterval, cfg.Router.Forward.MaxAttempts),
		router.WithBreaker(uint32(cfg.Router.Forward.BreakerMaxFailures), cfg.Router.Forward.BreakerTimeout),
		router.WithForwarderLogger(logger),
		router.WithForwarderMetrics(metrics),
	)

	rtr := router.New(reg, forwarder,
		router.WithDefaultAgent(cfg.Router.DefaultAgent),
		router.WithRouterLogger(logger),
		router.WithRouterMetrics(metrics),
	)

	store, closeStore, err := newTaskStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	card := routerCard(addr)

	mux := http.NewServeMux()
	mux.Handle(agentcard.WellKnownPath, agentcard.PublishHandler(card))
	mux.Handle("/", jsonrpc.New(server.NewRouterHandler(rtr, store, logger)))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("server.shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newTaskStore(cfg *config.Config) (server.TaskStore, func(), error) {
	switch cfg.Server.TaskStore {
	case "sqlite":
		store, db, err := server.OpenSQLiteTaskStore(cfg.Server.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	default:
		return server.NewMemoryTaskStore(), func() {}, nil
	}
}

// routerCard describes the router itself so peers can discover it the
// same way it discovers them.
func routerCard(addr string) *agentcard.AgentCard {
	return agentcard.Build(agentcard.Config{
		Name:        "switchyard",
		Description: "Routes requests to the best matching registered agent",
		URL:         "http://" + addr + "/",
		Version:     version,
		Capabilities: agentcard.AgentCapabilities{
			Streaming: false,
		},
		Skills: []agentcard.AgentSkill{
			{
				ID:          "request_routing",
				Name:        "request_routing",
				Description: "Analyzes requests and routes them to specialized agents",
				Tags:        []string{"routing", "orchestration", "dispatch"},
			},
			{
				ID:          "agent_coordination",
				Name:        "agent_coordination",
				Description: "Registers, lists and unregisters downstream agents",
				Tags:        []string{"coordination", "registry", "agents"},
			},
			{
				ID:          "skill_matching",
				Name:        "skill_matching",
				Description: "Matches request text against agent skills and keywords",
				Tags:        []string{"skills", "keywords", "matching"},
			},
			{
				ID:          "confidence_scoring",
				Name:        "confidence_scoring",
				Description: "Scores candidate agents and reports selection confidence",
				Tags:        []string{"confidence", "scoring", "selection"},
			},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	})
}
