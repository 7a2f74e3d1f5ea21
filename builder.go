package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/lgcovizzi/authcore/attempt"
	"github.com/lgcovizzi/authcore/captcha"
	"github.com/lgcovizzi/authcore/password"
	"github.com/lgcovizzi/authcore/refresh"
	"github.com/lgcovizzi/authcore/revocation"
	"github.com/lgcovizzi/authcore/token"
)

// Builder assembles an Engine. A Builder is single-use: Build consumes it.
type Builder struct {
	config Config

	redis redis.UniversalClient
	db    *gorm.DB

	directory UserDirectory
	notifier  Notifier
	auditSink AuditSink
	hasher    password.Hasher

	built bool
}

// New starts a Builder with production defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies the Redis client backing counters, captchas, and the
// revocation registry.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDB supplies the relational database backing refresh credentials.
func (b *Builder) WithDB(db *gorm.DB) *Builder {
	b.db = db
	return b
}

// WithUserDirectory supplies the caller's user database adapter.
func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithNotifier supplies outbound mail delivery. Optional; without it the
// reset and verification flows still mint tokens but nothing is sent.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink supplies the audit event consumer.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHasher overrides the password hasher. Defaults to bcrypt at the
// configured cost.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// Build validates the configuration, wires every subsystem, and returns
// the ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.db == nil {
		return nil, errors.New("database required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	keys, err := token.NewKeyManager(token.KeyConfig{
		PrivateKeyPEM:     cfg.Token.PrivateKeyPEM,
		PublicKeyPEM:      cfg.Token.PublicKeyPEM,
		PrivateKeyPath:    cfg.Token.PrivateKeyPath,
		PublicKeyPath:     cfg.Token.PublicKeyPath,
		GenerateIfMissing: cfg.Token.GenerateIfMissing,
		KeySize:           cfg.Token.KeySize,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := cfg.newTokenManager(keys)
	if err != nil {
		return nil, err
	}

	tracker, err := attempt.NewTracker(b.redis, cfg.Attempt)
	if err != nil {
		return nil, err
	}

	challenges, err := captcha.NewService(b.redis, cfg.Captcha)
	if err != nil {
		return nil, err
	}

	registry, err := revocation.NewRegistry(b.redis, tokens, cfg.newRevocationConfig())
	if err != nil {
		return nil, err
	}

	credentials, err := refresh.NewStore(b.db, cfg.Refresh)
	if err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		hasher, err = password.NewBcrypt(cfg.Password.BcryptCost)
		if err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:      cfg,
		tokens:      tokens,
		tracker:     tracker,
		challenges:  challenges,
		revocations: registry,
		credentials: credentials,
		resetStore:  newOpaqueTokenStore(b.redis, resetKeyPrefix),
		verifyStore: newOpaqueTokenStore(b.redis, verifyKeyPrefix),
		hasher:      hasher,
		directory:   b.directory,
		notifier:    b.notifier,
		audit:       newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:     NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
