package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vk/lasrgo/internal/ctxlog"
	"github.com/vk/lasrgo/internal/engine"
	"github.com/vk/lasrgo/internal/executor"
	"github.com/vk/lasrgo/internal/metrics"
	"github.com/vk/lasrgo/internal/registry"
)

// App encapsulates the run's dependencies, configuration and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	engine   engine.Engine
	metrics  *metrics.Executions
	gatherer *prometheus.Registry
	executor *executor.Executor

	httpServer *http.Server
}

// Option customises an App, mostly for tests.
type Option func(*options)

type options struct {
	engine  engine.Engine
	modules []registry.Module
}

// WithEngine replaces the engine the configuration would select.
func WithEngine(eng engine.Engine) Option {
	return func(o *options) { o.engine = eng }
}

// WithModules replaces the compiled-in stage definitions.
func WithModules(modules ...registry.Module) Option {
	return func(o *options) { o.modules = modules }
}

// NewApp wires an App. The report goes to outW and logs to logW; each App
// gets its own logger, registry and metrics.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	o := options{modules: coreModules}
	for _, opt := range opts {
		opt(&o)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New(o.modules...)
	logger.Debug("Stage definitions registered.", "modules", len(o.modules), "algonames", len(reg.Algonames()))

	eng := o.engine
	if eng == nil {
		eng = newEngine(cfg)
	}

	gatherer := prometheus.NewRegistry()
	m := metrics.New(gatherer)

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		engine:   eng,
		metrics:  m,
		gatherer: gatherer,
		executor: executor.New(eng,
			executor.WithRegistry(reg),
			executor.WithMetrics(m),
			executor.WithConfigDir(cfg.ConfigDir),
		),
	}
}

// newEngine picks the transport the configuration names.
func newEngine(cfg *Config) engine.Engine {
	if cfg.EngineURL != "" {
		return engine.NewSocketIO(engine.SocketIOConfig{
			URL:       cfg.EngineURL,
			Namespace: cfg.EngineNamespace,
		})
	}
	sub := engine.NewSubprocess(cfg.EngineBin)
	sub.Dir = cfg.ConfigDir
	return sub
}

// Registry returns the stage definitions of the app.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Close releases the engine connection and stops the health server.
func (a *App) Close() error {
	ctx := ctxlog.WithLogger(context.Background(), a.logger)
	err := a.closeHealthCheckServer(ctx)
	if c, ok := a.engine.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
