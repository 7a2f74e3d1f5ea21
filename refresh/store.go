package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lgcovizzi/authcore/internal"
)

var (
	ErrNotFound    = errors.New("refresh token not found or no longer valid")
	ErrUnavailable = errors.New("refresh store unavailable")
)

// Config tunes credential lifetime and the per-principal cap.
type Config struct {
	// TTL is the credential lifetime. Defaults to 180 days.
	TTL time.Duration

	// MaxPerPrincipal caps live credentials per principal. Creating one
	// past the cap evicts the oldest first.
	MaxPerPrincipal int

	// RevokedRetention is how long revoked rows are kept for audit before
	// Cleanup removes them.
	RevokedRetention time.Duration

	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
}

// DefaultConfig mirrors production: six month credentials, five devices per
// principal, thirty days of revoked-row retention.
func DefaultConfig() Config {
	return Config{
		TTL:              180 * 24 * time.Hour,
		MaxPerPrincipal:  5,
		RevokedRetention: 30 * 24 * time.Hour,
	}
}

func (c Config) validate() error {
	if c.TTL <= 0 {
		return errors.New("refresh: ttl must be positive")
	}
	if c.MaxPerPrincipal <= 0 {
		return errors.New("refresh: max per principal must be positive")
	}
	if c.RevokedRetention < 0 {
		return errors.New("refresh: revoked retention must not be negative")
	}
	return nil
}

// Stats is a point-in-time census of the credential table.
type Stats struct {
	Total   int64
	Valid   int64
	Revoked int64
	Expired int64
}

// Store manages refresh credentials on top of GORM. Safe for concurrent
// use; the underlying *gorm.DB handles pooling.
type Store struct {
	db     *gorm.DB
	config Config
	now    func() time.Time

	sweepMu   sync.Mutex
	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewStore validates cfg, runs the schema migration, and returns the store.
func NewStore(db *gorm.DB, cfg Config) (*Store, error) {
	if db == nil {
		return nil, errors.New("refresh: db is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Token{}); err != nil {
		return nil, fmt.Errorf("refresh: migrate: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, config: cfg, now: now}, nil
}

// OpenPostgres opens a Postgres-backed store from a DSN.
func OpenPostgres(dsn string, cfg Config) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("refresh: open postgres: %w", err)
	}
	return NewStore(db, cfg)
}

// Create mints a fresh credential for the principal, evicting the oldest
// live credentials first when the principal sits at the cap.
func (s *Store) Create(ctx context.Context, principalID uint64, device internal.Device) (*Token, error) {
	if principalID == 0 {
		return nil, errors.New("refresh: principal id is required")
	}

	opaque, err := internal.NewOpaqueToken(internal.RefreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("refresh: generate token: %w", err)
	}

	now := s.now()
	record := &Token{
		Token:       opaque,
		PrincipalID: principalID,
		ExpiresAt:   now.Add(s.config.TTL),
		DeviceInfo:  device.Info,
		IPAddress:   device.IP,
		UserAgent:   device.UserAgent,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var live []Token
		if err := tx.Where("principal_id = ? AND revoked = ? AND expires_at > ?", principalID, false, now).
			Order("created_at ASC").
			Find(&live).Error; err != nil {
			return err
		}

		if excess := len(live) - s.config.MaxPerPrincipal + 1; excess > 0 {
			ids := make([]uint64, 0, excess)
			for _, t := range live[:excess] {
				ids = append(ids, t.ID)
			}
			if err := tx.Model(&Token{}).Where("id IN ?", ids).Update("revoked", true).Error; err != nil {
				return err
			}
		}

		return tx.Create(record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return record, nil
}

// FindValid resolves an opaque credential to its record, stamping the
// last-used time. Returns ErrNotFound for blank, unknown, revoked, or
// expired credentials without distinguishing which.
func (s *Store) FindValid(ctx context.Context, opaque string) (*Token, error) {
	if opaque == "" {
		return nil, ErrNotFound
	}

	now := s.now()
	var record Token
	err := s.db.WithContext(ctx).
		Where("token = ? AND revoked = ? AND expires_at > ?", opaque, false, now).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	used := now
	record.LastUsedAt = &used
	if err := s.db.WithContext(ctx).Model(&record).Update("last_used_at", used).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &record, nil
}

// Revoke marks a credential dead. Revoking an unknown or already revoked
// credential is a no-op; the caller cannot act on the difference.
func (s *Store) Revoke(ctx context.Context, opaque string) error {
	if opaque == "" {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&Token{}).
		Where("token = ?", opaque).
		Update("revoked", true).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeAll kills every live credential of the principal and returns how
// many died.
func (s *Store) RevokeAll(ctx context.Context, principalID uint64) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&Token{}).
		Where("principal_id = ? AND revoked = ?", principalID, false).
		Update("revoked", true)
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

// RevokeAllExcept kills every live credential of the principal but the one
// given, which is how "log out other devices" works.
func (s *Store) RevokeAllExcept(ctx context.Context, principalID uint64, keep string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&Token{}).
		Where("principal_id = ? AND revoked = ? AND token <> ?", principalID, false, keep).
		Update("revoked", true)
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

// ListValid returns the principal's live credentials, newest first.
func (s *Store) ListValid(ctx context.Context, principalID uint64) ([]Token, error) {
	var records []Token
	err := s.db.WithContext(ctx).
		Where("principal_id = ? AND revoked = ? AND expires_at > ?", principalID, false, s.now()).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return records, nil
}

// CountValid counts the principal's live credentials.
func (s *Store) CountValid(ctx context.Context, principalID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Token{}).
		Where("principal_id = ? AND revoked = ? AND expires_at > ?", principalID, false, s.now()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

// Stats reports a census across all principals.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	var stats Stats
	db := s.db.WithContext(ctx).Model(&Token{})

	if err := db.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := db.Session(&gorm.Session{}).Where("revoked = ?", true).Count(&stats.Revoked).Error; err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := db.Session(&gorm.Session{}).Where("revoked = ? AND expires_at <= ?", false, now).Count(&stats.Expired).Error; err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	stats.Valid = stats.Total - stats.Revoked - stats.Expired
	return stats, nil
}

// Cleanup deletes expired credentials and revoked ones past the retention
// window. Returns the number of rows removed.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	now := s.now()
	cutoff := now.Add(-s.config.RevokedRetention)

	res := s.db.WithContext(ctx).
		Where("expires_at <= ? OR (revoked = ? AND updated_at <= ?)", now, true, cutoff).
		Delete(&Token{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

// StartSweeper runs Cleanup on the given interval until StopSweeper is
// called. Starting while a sweeper is running is an error; after
// StopSweeper a new one may be started.
func (s *Store) StartSweeper(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("refresh: sweep interval must be positive")
	}

	s.sweepMu.Lock()
	if s.sweepStop != nil {
		s.sweepMu.Unlock()
		return errors.New("refresh: sweeper already running")
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	s.sweepStop, s.sweepDone = stop, done
	s.sweepMu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// Sweep errors are transient; the next tick retries.
				_, _ = s.Cleanup(context.Background())
			case <-stop:
				return
			}
		}
	}()
	return nil
}

// StopSweeper halts the background sweep and waits for it to exit. Safe to
// call when the sweeper never started; the store may start a new sweeper
// afterwards.
func (s *Store) StopSweeper() {
	s.sweepMu.Lock()
	stop, done := s.sweepStop, s.sweepDone
	s.sweepStop, s.sweepDone = nil, nil
	s.sweepMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
