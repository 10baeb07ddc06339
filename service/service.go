package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kbasefaqs/sr-acceptor/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"
)

// Config selects what the service exposes. The metrics server only runs
// when MetricsEnabled is set.
type Config struct {
	HealthzAddr    string
	MetricsEnabled bool
	MetricsAddr    string
	MetricsPort    int
}

// DefaultConfig serves healthz on the default port and no metrics
func DefaultConfig() Config {
	return Config{HealthzAddr: net.JoinHostPort(HealthzHost, HealthzPort)}
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	config Config
	log    log.Logger
}

func New(cfg Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.New()
	}
	s := &Service{
		Healthz: &HealthzServer{log: logger},
		Metrics: &MetricsServer{},
		config:  cfg,
		log:     logger,
	}
	return s
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")

	if s.config.HealthzAddr != "" {
		go func() {
			addr := s.config.HealthzAddr
			s.log.Info("starting healthz server", "addr", addr)
			if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("error starting healthz server", "err", err)
				metrics.RecordErrorDetails("healthz", err)
			}
		}()
	}

	if s.config.MetricsEnabled {
		go func() {
			addr := net.JoinHostPort(s.config.MetricsAddr, strconv.Itoa(s.config.MetricsPort))
			s.log.Info("starting metrics server", "addr", addr)
			if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("metrics", err)
			}
		}()
	}

	s.log.Info("service started")
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.log.Info("service stopped")
}
