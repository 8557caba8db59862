package docstore

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Ratio1/docstore_sdk_go/internal/config"
	"github.com/Ratio1/docstore_sdk_go/internal/devseed"
	"github.com/Ratio1/docstore_sdk_go/internal/httpx"
	"github.com/Ratio1/docstore_sdk_go/internal/logger"
	"github.com/Ratio1/docstore_sdk_go/pkg/bucket"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway"
	"github.com/Ratio1/docstore_sdk_go/pkg/gateway/mock"
	"github.com/Ratio1/docstore_sdk_go/pkg/resource"
	"github.com/Ratio1/docstore_sdk_go/pkg/schema"
)

// Runtime bundles a gateway client with the bucket registry used by the
// application.
type Runtime struct {
	Client  *gateway.Client
	Buckets *bucket.Registry
	Mode    string // resolved mode, "http" or "mock"
	Logger  *zap.Logger
}

// NewFromEnv builds a Runtime from the file named by DOCSTORE_CONFIG and the
// DOCSTORE_* environment variables.
func NewFromEnv() (*Runtime, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("docstore: %w", err)
	}
	return newFromConfig(cfg)
}

// NewFromFile builds a Runtime from the TOML file at path. Environment
// variables still take precedence over the file.
func NewFromFile(path string) (*Runtime, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("docstore: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("docstore: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("docstore: %w", err)
	}
	return newFromConfig(cfg)
}

func newFromConfig(cfg *config.Config) (*Runtime, error) {
	log := logger.New(cfg.Logging.Level, logger.ParseFormat(cfg.Logging.Format))

	switch cfg.Mode {
	case config.ModeAuto:
		if strings.TrimSpace(cfg.Server.URL) != "" {
			return newHTTPRuntime(cfg, log)
		}
		return newMockRuntime(cfg, log)
	case config.ModeHTTP:
		return newHTTPRuntime(cfg, log)
	case config.ModeMock:
		return newMockRuntime(cfg, log)
	default:
		return nil, fmt.Errorf("docstore: unsupported %s value %q", config.EnvMode, cfg.Mode)
	}
}

func newHTTPRuntime(cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	hc, err := httpx.NewClient(cfg.Server.URL,
		httpx.WithHTTPClient(&http.Client{Timeout: cfg.Server.Timeout.Duration()}),
		httpx.WithRetryPolicy(cfg.RetryPolicy()),
		httpx.WithLogger(log.Named(logger.ComponentHTTP)),
	)
	if err != nil {
		return nil, fmt.Errorf("docstore: init HTTP client: %w", err)
	}
	log.Info("docstore runtime ready", zap.String("mode", config.ModeHTTP), zap.String("url", cfg.Server.URL))
	return &Runtime{
		Client:  gateway.NewWithHTTPClient(hc, gateway.WithLogger(log.Named(logger.ComponentGateway))),
		Buckets: bucket.NewRegistry(),
		Mode:    config.ModeHTTP,
		Logger:  log,
	}, nil
}

func newMockRuntime(cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	store := mock.New()
	if path := strings.TrimSpace(cfg.Mock.Seed); path != "" {
		seed, err := devseed.LoadSeed(path)
		if err != nil {
			return nil, fmt.Errorf("docstore: load seed: %w", err)
		}
		if err := store.Seed(seed); err != nil {
			return nil, fmt.Errorf("docstore: apply seed: %w", err)
		}
	}
	log.Info("docstore runtime ready", zap.String("mode", config.ModeMock), zap.String("seed", cfg.Mock.Seed))
	return &Runtime{
		Client:  gateway.NewWithBackend(store, gateway.WithLogger(log.Named(logger.ComponentGateway))),
		Buckets: bucket.NewRegistry(),
		Mode:    config.ModeMock,
		Logger:  log,
	}, nil
}

// Define registers a bucket and the resource type stored in it. An empty
// cfg.Name defaults to the bucket name; cfg.Bucket is ignored.
func (rt *Runtime) Define(name string, s *schema.Schema, params bucket.RequestParams, cfg resource.TypeConfig) (*resource.Type, error) {
	b, err := rt.Buckets.Register(name, s, params)
	if err != nil {
		return nil, fmt.Errorf("docstore: define %q: %w", name, err)
	}
	cfg.Bucket = b
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = b.Name()
	}
	return resource.Register(rt.Client, cfg, resource.WithLogger(logger.OrNop(rt.Logger).Named(logger.ComponentResource)))
}

// PushSchemas stores the schema of every registered bucket on the server,
// stopping at the first failure.
func (rt *Runtime) PushSchemas(ctx context.Context) error {
	for _, b := range rt.Buckets.Buckets() {
		if err := rt.Client.SetSchema(ctx, b); err != nil {
			return fmt.Errorf("docstore: push schema %q: %w", b.Name(), err)
		}
	}
	return nil
}
