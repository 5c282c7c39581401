package apartments

import (
	"errors"
	"log/slog"
	"time"

	"github.com/khaledahmed0918-sys/Apartments/credentials"
	"github.com/khaledahmed0918-sys/Apartments/delivery"
	internalaudit "github.com/khaledahmed0918-sys/Apartments/internal/audit"
	"github.com/khaledahmed0918-sys/Apartments/internal/otp"
	"github.com/khaledahmed0918-sys/Apartments/internal/stores"
	"github.com/khaledahmed0918-sys/Apartments/password"
	"github.com/khaledahmed0918-sys/Apartments/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials credentials.Store
	deliverer   delivery.Deliverer
	auditSink   AuditSink
	logger      *slog.Logger
	now         func() time.Time

	built bool
}

// New returns a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used for sessions, pending codes and, unless
// WithCredentialStore is given, accounts. It is required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore replaces the default Redis account store, for example
// with a credentials.PostgresStore.
func (b *Builder) WithCredentialStore(store credentials.Store) *Builder {
	b.credentials = store
	return b
}

// WithDeliverer sets where codes are sent. Without it codes are written to
// the logger by delivery.LogDeliverer, which suits development only.
func (b *Builder) WithDeliverer(d delivery.Deliverer) *Builder {
	b.deliverer = d
	return b
}

// WithAuditSink sets the audit destination and enables auditing. A later
// WithConfig overrides the enabled flag.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithLogger sets the engine logger. Without it nothing is logged.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for code expiry, join dates and audit
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
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

// Build validates the configuration and returns the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// -------- PASSWORD HASHER --------
	ph, err := password.NewArgon2(cfg.Password.argon2())
	if err != nil {
		return nil, err
	}

	// -------- OTP ISSUER --------
	issuer, err := otp.NewIssuer(otp.Config{
		Digits:    cfg.OTP.Digits,
		TTL:       cfg.OTP.TTL,
		FullRange: cfg.OTP.FullRange,
	}, now)
	if err != nil {
		return nil, err
	}

	// -------- STORES --------
	creds := b.credentials
	if creds == nil {
		creds = credentials.NewRedisStore(b.redis, cfg.Credentials.RedisPrefix)
	}

	deliverer := b.deliverer
	if deliverer == nil {
		deliverer = delivery.NewLogDeliverer(logger)
		logger.Warn("no deliverer configured, verification codes will be logged")
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		credentials:  creds,
		sessionStore: session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.TTL),
		pendingStore: stores.NewPendingStore(b.redis, cfg.OTP.RedisPrefix, cfg.OTP.PendingGrace),
		issuer:       issuer,
		deliverer:    deliverer,
		passwordHash: ph,
		validate:     newValidator(),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		now:     now,
	}

	b.built = true

	return engine, nil
}
