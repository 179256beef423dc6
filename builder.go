package portalAuth

import (
	"context"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/internal/audit"
	"github.com/MrEthical07/portalAuth/internal/flows"
	"github.com/MrEthical07/portalAuth/route"
	"github.com/MrEthical07/portalAuth/session"
	"github.com/MrEthical07/portalAuth/token"
)

// Builder assembles a [Manager]. A Builder is single use.
type Builder struct {
	config Config

	gateway     Gateway
	gatewayOpts []gateway.Option
	store       session.Store
	logger      logrus.FieldLogger
	auditSink   AuditSink

	built bool
}

// New returns a Builder starting from [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithGateway injects the remote authority. Config.API is then ignored.
func (b *Builder) WithGateway(g Gateway) *Builder {
	b.gateway = g
	return b
}

// WithGatewayOptions customises the client built from Config.API.
func (b *Builder) WithGatewayOptions(opts ...gateway.Option) *Builder {
	b.gatewayOpts = append(b.gatewayOpts, opts...)
	return b
}

// WithStore injects the persisted session store. Config.Store is then
// ignored.
func (b *Builder) WithStore(s session.Store) *Builder {
	b.store = s
	return b
}

// WithLogger sets the logger. Without one the Manager logs nothing.
func (b *Builder) WithLogger(l logrus.FieldLogger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit sink. With auditing enabled and no sink,
// events go to the Manager's logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Manager in the loading
// state. Call [Manager.StartupValidate] next.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderReused
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- GATEWAY --------
	gw := b.gateway
	if gw == nil {
		if cfg.API.BaseURL == "" {
			return nil, ErrGatewayRequired
		}
		client, err := gateway.NewClient(gateway.Config{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   cfg.API.Timeout,
			UserAgent: cfg.API.UserAgent,
		}, b.gatewayOpts...)
		if err != nil {
			return nil, err
		}
		gw = client
	}

	// -------- STORE --------
	store := b.store
	var closers []func() error
	if store == nil {
		switch cfg.Store.Backend {
		case StoreFile:
			store = session.NewFileStore(cfg.Store.FilePath)
		case StoreRedis:
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Store.RedisAddr,
				Password: cfg.Store.RedisPassword,
				DB:       cfg.Store.RedisDB,
			})
			store = session.NewRedisStore(rdb, cfg.Store.RedisPrefix)
			closers = append(closers, rdb.Close)
		default:
			store = session.NewMemoryStore()
		}
	}

	// -------- LOGGER --------
	logger := b.logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	// -------- AUDIT --------
	sink := b.auditSink
	if sink == nil && cfg.Audit.Enabled {
		sink = audit.NewLogrusSink(logger)
	}
	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	m := &Manager{
		config:   cfg,
		gateway:  gw,
		store:    store,
		resolver: route.NewResolver(cfg.Routes),
		guards:   route.NewTable(cfg.Routes),
		logger:   logger.WithField("component", "portalauth"),
		metrics:  NewMetrics(cfg.Metrics),
		audit:    dispatcher,
		closers:  closers,
		state: Session{
			IsLoading:            true,
			RegistrationComplete: true,
		},
		ready: make(chan struct{}),
		subs:  make(map[uint64]func(Session)),
	}
	m.bgCtx, m.bgCancel = context.WithCancel(context.Background())
	m.flows = flows.Deps{
		Credential: flows.CredentialDeps{
			ValidateFormat: token.ValidateFormat,
			Persist:        m.commit,
		},
		Startup: flows.StartupDeps{
			Load:           store.Load,
			ValidateFormat: token.ValidateFormat,
			ValidateRemote: m.validateRemote,
		},
		Logout: flows.LogoutDeps{
			Clear: store.Clear,
		},
	}

	b.built = true
	return m, nil
}
