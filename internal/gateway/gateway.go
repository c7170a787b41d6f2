package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tarkov-gateway/internal/infrastructure/config"
	"github.com/GriffinCanCode/tarkov-gateway/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tarkov-gateway/internal/protocol"
)

// Gateway holds the five profile handles and the state they share.
type Gateway struct {
	Prod         *Handle
	LauncherProd *Handle
	Launcher     *Handle
	Trading      *Handle
	Ragfair      *Handle

	// Session is read by every request of a profile with bsgSession.
	Session *SessionState

	id      string
	cfg     *config.Config
	state   *shared
	handles map[Profile]*Handle
	logger  *zap.Logger
	metrics *monitoring.Metrics

	refresh *Refresh
	cancel  context.CancelFunc
}

type options struct {
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	transport http.RoundTripper
}

// Option configures a Gateway.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics collector. The default creates a private one.
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithTransport replaces the pooled HTTP transport shared by the handles.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// New builds the gateway and, unless disabled in cfg, starts the version
// refresh in the background. It never waits on the network.
func New(cfg *config.Config, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.metrics == nil {
		o.metrics = monitoring.NewMetrics()
	}
	if o.transport == nil {
		o.transport = pooledTransport()
	}

	id := uuid.NewString()
	g := &Gateway{
		Session: &SessionState{},
		id:      id,
		cfg:     cfg,
		handles: make(map[Profile]*Handle, 5),
		logger:  o.logger.With(zap.String("gateway_id", id)),
		metrics: o.metrics,
	}
	g.state = &shared{
		session:  g.Session,
		counter:  &RequestCounter{},
		versions: &versionStore{info: versionInfo(cfg.Versions)},
	}

	for _, spec := range Profiles(cfg.Endpoints) {
		h, err := newHandle(spec, cfg.Transport, o.transport, g.state, g.logger, g.metrics)
		if err != nil {
			return nil, fmt.Errorf("gateway: %w", err)
		}
		g.handles[spec.Profile] = h
	}
	g.Prod = g.handles[Prod]
	g.LauncherProd = g.handles[LauncherProd]
	g.Launcher = g.handles[Launcher]
	g.Trading = g.handles[Trading]
	g.Ragfair = g.handles[Ragfair]

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	if cfg.Refresh.OnStart {
		g.refresh = g.startRefresh(ctx)
	} else {
		g.refresh = completedRefresh(nil)
	}

	g.logger.Debug("Gateway created",
		zap.Bool("refresh_on_start", cfg.Refresh.OnStart),
		zap.String("launcher_version", cfg.Versions.Launcher),
		zap.String("game_version", cfg.Versions.Game))

	return g, nil
}

// pooledTransport is the keep-alive transport of a retryablehttp client.
// Its retry loop is not used; failures go straight to the caller.
func pooledTransport() http.RoundTripper {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil
	return retryClient.HTTPClient.Transport
}

func versionInfo(v config.VersionsConfig) protocol.VersionInfo {
	return protocol.VersionInfo{
		Launcher: v.Launcher,
		Game:     v.Game,
		Unity:    v.Unity,
		Backend:  v.Backend,
	}
}

// ID identifies this gateway instance in logs.
func (g *Gateway) ID() string {
	return g.id
}

// Handle returns the handle of profile p, or nil for an unknown profile.
func (g *Gateway) Handle(p Profile) *Handle {
	return g.handles[p]
}

// Handles returns all handles in construction order.
func (g *Gateway) Handles() []*Handle {
	return []*Handle{g.Prod, g.LauncherProd, g.Launcher, g.Trading, g.Ragfair}
}

// Versions returns a snapshot of the identity strings.
func (g *Gateway) Versions() protocol.VersionInfo {
	return g.state.versions.get()
}

// Counter returns the gateway's request counter.
func (g *Gateway) Counter() *RequestCounter {
	return g.state.counter
}

// Metrics returns the gateway's metrics collector.
func (g *Gateway) Metrics() *monitoring.Metrics {
	return g.metrics
}

// Refresh returns the startup version refresh.
func (g *Gateway) Refresh() *Refresh {
	return g.refresh
}

// Close cancels the background refresh and waits for it to stop.
func (g *Gateway) Close() error {
	g.cancel()
	<-g.refresh.Done()

	if t, ok := g.Prod.client.GetClient().Transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return nil
}
