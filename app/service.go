// Package app wires a full board session: store, drag controller, realtime
// client, backend client and metrics.
package app

import (
	"context"
	"fmt"

	"github.com/haulplan/haulplan/config"
	"github.com/haulplan/haulplan/core/board"
	"github.com/haulplan/haulplan/core/drag"
	"github.com/haulplan/haulplan/core/realtime"
	"github.com/haulplan/haulplan/infra/logger"
	"github.com/haulplan/haulplan/infra/metrics"
	"github.com/haulplan/haulplan/infra/mqttchan"
	"github.com/haulplan/haulplan/infra/rest"
	"github.com/haulplan/haulplan/infra/ws"
	"github.com/haulplan/haulplan/internal/eventbus"
)

// Service is one running board session.
type Service struct {
	Store      *board.MemoryStore
	Controller *drag.Controller
	Realtime   *realtime.Client
	Backend    *rest.Client
	Bus        *eventbus.Bus

	log         logger.Logger
	promEnabled bool
	promAddr    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	store := board.NewMemoryStore()
	bus := eventbus.New()
	backend := rest.New(cfg.Backend)

	sink, err := metrics.FromConfig(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	var transport realtime.Transport
	switch cfg.Channel.Transport {
	case "mqtt":
		transport = mqttchan.New(cfg.MQTT, logger.New("mqtt-channel"))
	default:
		transport = ws.New(cfg.Backend.BaseURL, cfg.Channel.Path, backend, logger.New("ws-channel"))
	}

	svc := &Service{
		Store:       store,
		Controller:  drag.NewController(store, backend, bus, sink, logger.New("drag")),
		Realtime:    realtime.New(cfg.Channel, transport, store, bus, sink, logger.New("realtime")),
		Backend:     backend,
		Bus:         bus,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promAddr:    cfg.Metrics.PrometheusAddr,
	}
	return svc, nil
}

// Run starts the realtime client and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.Realtime.Start(ctx)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.Realtime.Close()
	s.Bus.Close()
	s.Store.Close()
	return nil
}
