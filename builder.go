package credlock

import (
	"errors"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/credlock/credlock/internal/audit"
	"github.com/credlock/credlock/password"
	"github.com/credlock/credlock/token"
)

// Builder assembles an [Engine]. Configure it with the With* methods and
// call [Builder.Build] once; a builder cannot be reused.
type Builder struct {
	config Config
	redis  *redis.Client

	users    UserStore
	profiles ProfileStore
	secrets  SecretStore
	mailer   Mailer
	sms      SMSSender

	auditSink AuditSink

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The config is cloned, so
// later mutation of cfg does not affect the builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserStore sets the durable account repository. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithProfileStore enables the profile operations.
func (b *Builder) WithProfileStore(store ProfileStore) *Builder {
	b.profiles = store
	return b
}

// WithSecretStore sets the OTP and revocation backend explicitly,
// overriding WithRedis.
func (b *Builder) WithSecretStore(store SecretStore) *Builder {
	b.secrets = store
	return b
}

// WithRedis backs the secret store with a shared Redis client.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithMailer sets the outbound email sender used for verification links
// and reset passcodes.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithSMSSender sets the outbound SMS sender used when an account has a
// phone but no email.
func (b *Builder) WithSMSSender(s SMSSender) *Builder {
	b.sms = s
	return b
}

// WithAuditSink sets the audit event consumer.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms additionally tracks Authenticate latency buckets.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and dependencies and returns a ready
// [Engine].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}

	secrets := b.secrets
	if secrets == nil {
		if b.redis == nil {
			return nil, errors.New("secret store or redis client required")
		}
		secrets = NewRedisSecretStore(b.redis, cfg.OTP.TTL)
	}

	engine := &Engine{
		config:   cfg,
		users:    b.users,
		profiles: b.profiles,
		secrets:  secrets,
		mailer:   b.mailer,
		sms:      b.sms,
	}

	if cfg.Audit.Enabled {
		engine.audit = internalaudit.NewDispatcher(b.auditSink, cfg.Audit.BufferSize, cfg.Audit.DropIfFull)
	}
	engine.metrics = NewMetrics(cfg.Metrics)

	hasher, err := password.NewBcrypt(password.Config{
		Cost: cfg.Password.Cost,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	tm, err := token.NewManager(token.Config{
		SessionTTL:      cfg.Token.SessionTTL,
		VerificationTTL: cfg.Token.VerificationTTL,
		SigningMethod:   token.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:      cloneBytes(cfg.Token.PrivateKey),
		PublicKey:       cloneBytes(cfg.Token.PublicKey),
		Issuer:          cfg.Token.Issuer,
		Leeway:          cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	b.built = true

	return engine, nil
}
