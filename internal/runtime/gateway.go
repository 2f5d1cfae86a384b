// Package runtime provides the Gateway: the composition root that wires configuration,
// the event dispatcher, providers and their prebuilt plugin chains, and serves them over
// HTTP. Gateway can be embedded in larger applications or run standalone.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/adapters/events/audit"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/adapters/events/logging"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/adapters/events/tracing"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/container"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/event"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/parser"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pipeline"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/safehttp"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/sign"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/provider/registry"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/server"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/storage"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/telemetry"
)

// ErrClosed is returned by operations invoked after Shutdown.
var ErrClosed = errors.New("gateway is shut down")

// Gateway runs payment operations through prebuilt plugin chains.
type Gateway struct {
	// Dependencies (injected via options)
	config      ports.ConfigProvider
	store       ports.AuditStore
	ownsStore   bool
	noAudit     bool
	httpClient  ports.HTTPDoer
	subscribers []event.Subscriber
	logger      *slog.Logger
	tracer      trace.Tracer

	// Assembled state, replaced wholesale on reload
	mu     sync.RWMutex
	state  *assembly
	closed bool

	// Lifecycle management
	server *server.Server
	ctx    context.Context
	cancel context.CancelFunc
}

// assembly is everything built from one configuration revision.
type assembly struct {
	cfg        *config.Config
	container  *container.Container
	dispatcher *event.Dispatcher
	pipelines  *pipeline.Registry
	parsers    *parser.Registry
}

// New loads configuration and builds one executor per registered driver operation.
// Drivers must be registered beforehand (registration.RegisterBuiltins).
func New(opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		logger: slog.Default(),
		tracer: telemetry.Tracer(),
	}

	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if gw.config == nil {
		return nil, fmt.Errorf("config provider required (use WithFileConfig or WithConfig)")
	}

	cfg, err := gw.config.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if gw.store == nil && !gw.noAudit {
		store, err := storage.Open(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		gw.store = store
		gw.ownsStore = store != nil
	}

	state, err := gw.assemble(cfg, gw.store)
	if err != nil {
		gw.closeStore()
		return nil, err
	}
	gw.state = state

	return gw, nil
}

// assemble builds the dispatcher, the service container and every driver's plugin
// chains from cfg.
func (g *Gateway) assemble(cfg *config.Config, store ports.AuditStore) (*assembly, error) {
	policy, err := event.ParseFailurePolicy(cfg.Events.FailurePolicy)
	if err != nil {
		return nil, domain.ErrConfig("events.failure_policy", err.Error())
	}

	dispatcher := event.NewDispatcher(event.WithFailurePolicy(policy), event.WithLogger(g.logger))
	dispatcher.AddSubscriber(logging.NewSubscriber(g.logger))
	dispatcher.AddSubscriber(tracing.NewSubscriber())
	if store != nil {
		sub, err := audit.NewSubscriber(store)
		if err != nil {
			return nil, err
		}
		dispatcher.AddSubscriber(sub)
	}
	for _, s := range g.subscribers {
		dispatcher.AddSubscriber(s)
	}

	client := g.httpClient
	if client == nil {
		client = safehttp.NewClient(cfg.HTTP)
	}
	parsers := parser.NewRegistry()

	c := container.New()
	c.Set(container.KeyLogger, g.logger)
	c.Set(container.KeyConfig, cfg)
	c.Set(container.KeyEvents, dispatcher)
	c.Set(container.KeyHTTPClient, client)
	c.Set(container.KeyParsers, parsers)
	c.Bind(container.KeySigner, newMerchantSigner)

	providers, err := registry.CreateAll(c)
	if err != nil {
		return nil, fmt.Errorf("create providers: %w", err)
	}

	pipelines, err := pipeline.BuildRegistry(providers, pipeline.WithDispatcher(dispatcher))
	if err != nil {
		return nil, fmt.Errorf("build pipelines: %w", err)
	}

	g.logger.Debug("plugin chains assembled",
		slog.Int("providers", len(providers)),
		slog.Int("operations", len(pipelines.Keys())))

	return &assembly{
		cfg:        cfg,
		container:  c,
		dispatcher: dispatcher,
		pipelines:  pipelines,
		parsers:    parsers,
	}, nil
}

func (g *Gateway) current() *assembly {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// active returns the current assembly, or ErrClosed once Shutdown has run.
func (g *Gateway) active() (*assembly, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, ErrClosed
	}
	return g.state, nil
}

// Config returns the configuration the gateway is currently running with.
func (g *Gateway) Config() *config.Config {
	return g.current().cfg
}

// Container returns the service container of the current assembly.
func (g *Gateway) Container() *container.Container {
	return g.current().container
}

// Operations lists every driver/operation pair the gateway can run.
func (g *Gateway) Operations() []pipeline.Key {
	return g.current().pipelines.Keys()
}

// newMerchantSigner is bound to container.KeySigner. It takes the secret and the config
// field it came from.
func newMerchantSigner(_ *container.Container, args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("signer takes a secret and a field name, got %d arguments", len(args))
	}
	secret, _ := args[0].(string)
	field, _ := args[1].(string)
	return sign.NewSigner(secret, field)
}

// Run assembles and, unless the operation's direction says otherwise, sends one gateway
// request, then parses the outcome according to the rocket's final direction.
func (g *Gateway) Run(ctx context.Context, driver, operation string, params map[string]any) (any, error) {
	st, err := g.active()
	if err != nil {
		return nil, err
	}

	ctx, span := g.tracer.Start(ctx, driver+"."+operation,
		trace.WithAttributes(
			attribute.String("paygate.driver", driver),
			attribute.String("paygate.gateway", operation)))
	defer span.End()

	rocket := domain.NewRocket(driver, operation).SetParams(params)
	span.SetAttributes(attribute.String("paygate.rocket_id", rocket.ID))

	err = st.dispatcher.Dispatch(ctx, domain.PayStarting{
		Rocket:  rocket.ID,
		Driver:  driver,
		Gateway: operation,
		Params:  rocket.Params().DeepClone(),
	})
	if err != nil {
		return nil, fail(span, err)
	}

	exec, err := st.pipelines.Executor(driver, operation)
	if err != nil {
		return nil, fail(span, err)
	}

	result, err := exec.Run(ctx, rocket)
	if err != nil {
		return nil, fail(span, err)
	}

	err = st.dispatcher.Dispatch(ctx, domain.MethodCalled{
		Rocket:   result.ID,
		Driver:   driver,
		Gateway:  operation,
		Endpoint: result.Endpoint(),
		Payload:  result.Payload().DeepClone(),
	})
	if err != nil {
		return nil, fail(span, err)
	}

	out, err := st.parsers.Parse(ctx, result)
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// Callback verifies an inbound gateway notification and returns its decoded fields.
// Query parameters starting with "_" (such as _config) select the merchant profile.
func (g *Gateway) Callback(ctx context.Context, driver string, r *http.Request) (any, error) {
	st, err := g.active()
	if err != nil {
		return nil, err
	}

	ctx, span := g.tracer.Start(ctx, driver+".callback",
		trace.WithAttributes(attribute.String("paygate.driver", driver)))
	defer span.End()

	rocket, err := notificationRocket(driver, r)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("paygate.rocket_id", rocket.ID))

	exec, err := st.pipelines.CallbackExecutor(driver)
	if err != nil {
		return nil, fail(span, err)
	}

	result, err := exec.Run(ctx, rocket)
	if err != nil {
		return nil, fail(span, err)
	}

	out, err := st.parsers.Parse(ctx, result)
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// Events returns the persisted audit timeline matching opts.
func (g *Gateway) Events(ctx context.Context, opts ports.AuditListOptions) ([]*domain.AuditRecord, error) {
	g.mu.RLock()
	store, closed := g.store, g.closed
	g.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if store == nil {
		return nil, nil
	}
	return store.List(ctx, opts)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Start serves the HTTP surface in the background and begins watching the
// configuration for changes.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	if g.server != nil {
		return fmt.Errorf("gateway already started")
	}

	g.ctx, g.cancel = context.WithCancel(ctx)
	cfg := g.state.cfg

	g.server = server.New(cfg.Server, g.logger, g)
	go func() {
		if err := g.server.Start(); err != nil {
			g.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	go g.watchConfig()

	g.logger.Info("gateway started",
		slog.Int("port", cfg.Server.Port),
		slog.Int("operations", len(g.state.pipelines.Keys())))

	return nil
}

// Handler returns the HTTP handler without starting a listener.
func (g *Gateway) Handler() http.Handler {
	return server.New(g.Config().Server, g.logger, g).Router
}

// Shutdown gracefully stops the gateway.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	g.logger.Info("shutting down gateway")

	if g.cancel != nil {
		g.cancel()
	}

	var errs []error
	if g.server != nil {
		if err := g.server.Shutdown(ctx); err != nil {
			g.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		g.server = nil
	}

	if err := g.config.Close(); err != nil {
		g.logger.Error("failed to close config", slog.String("error", err.Error()))
	}

	if err := g.closeStore(); err != nil {
		g.logger.Error("failed to close audit store", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	g.logger.Info("gateway shutdown complete")
	return errors.Join(errs...)
}

func (g *Gateway) closeStore() error {
	if !g.ownsStore || g.store == nil {
		return nil
	}
	err := g.store.Close()
	g.store = nil
	return err
}

// watchConfig watches for config changes and reloads.
func (g *Gateway) watchConfig() {
	onChange := func(newCfg *config.Config) {
		g.logger.Info("config changed, reloading")
		if err := g.reload(newCfg); err != nil {
			g.logger.Error("failed to reload", slog.String("error", err.Error()))
		}
	}

	if err := g.config.Watch(g.ctx, onChange); err != nil {
		if !errors.Is(err, context.Canceled) {
			g.logger.Error("config watch failed", slog.String("error", err.Error()))
		}
	}
}

// reload rebuilds every plugin chain from cfg. In-flight runs finish on the previous
// assembly; a failed rebuild keeps it in place.
func (g *Gateway) reload(cfg *config.Config) error {
	g.mu.RLock()
	store, closed := g.store, g.closed
	g.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	state, err := g.assemble(cfg, store)
	if err != nil {
		return fmt.Errorf("reassemble: %w", err)
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	g.state = state
	g.mu.Unlock()

	g.logger.Info("reload complete", slog.Int("operations", len(state.pipelines.Keys())))
	return nil
}
