// Command authcore-loadtest drives the engine's validate and refresh paths
// against in-process backends and reports latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	authcore "github.com/lgcovizzi/authcore"
	"github.com/lgcovizzi/authcore/password"
)

type sessionState struct {
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 1000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (validate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqlite open failed: %v\n", err)
		os.Exit(1)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	hasher, err := password.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bcrypt init failed: %v\n", err)
		os.Exit(1)
	}
	seedHash, err := hasher.Hash("loadtest-password")
	if err != nil {
		fmt.Fprintf(os.Stderr, "bcrypt hash failed: %v\n", err)
		os.Exit(1)
	}

	directory := newSeedDirectory(*sessions, seedHash)

	cfg := authcore.DefaultConfig()
	cfg.Token.GenerateIfMissing = true
	cfg.Token.PrivateKeyPath = tempKeyPath()
	// One credential per seeded principal; no eviction noise during phases.
	cfg.Refresh.MaxPerPrincipal = 1
	cfg.Audit.Enabled = false

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithDB(db).
		WithUserDirectory(directory).
		WithHasher(hasher).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]sessionState, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		result, err := engine.Login(ctx, authcore.LoginRequest{
			Email:    directory.email(i),
			Password: "loadtest-password",
			Device: authcore.DeviceContext{
				Info:      "Desktop",
				IP:        fmt.Sprintf("10.0.%d.%d", i/250, i%250+1),
				UserAgent: "authcore-loadtest",
			},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed login failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = sessionState{access: result.AccessToken, refresh: result.RefreshToken}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runValidatePhase(ctx, engine, states, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
}

func runValidatePhase(ctx context.Context, engine *authcore.Engine, states []sessionState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				t0 := time.Now()
				_, err := engine.Validate(ctx, states[idx].access)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runRefreshPhase(ctx context.Context, engine *authcore.Engine, states []sessionState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	device := authcore.DeviceContext{Info: "Desktop", IP: "10.1.0.1", UserAgent: "authcore-loadtest"}

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				state := &states[idx]

				state.mu.Lock()
				t0 := time.Now()
				result, err := engine.Refresh(ctx, state.refresh, device)
				d := time.Since(t0)
				if err == nil {
					state.access = result.AccessToken
					state.refresh = result.RefreshToken
				} else {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func tempKeyPath() string {
	dir, err := os.MkdirTemp("", "authcore-loadtest")
	if err != nil {
		fmt.Fprintf(os.Stderr, "temp dir failed: %v\n", err)
		os.Exit(1)
	}
	return dir + "/private.pem"
}

// seedDirectory serves a fixed set of principals without touching a real
// user database.
type seedDirectory struct {
	hash string
	n    int
}

func newSeedDirectory(n int, hash string) *seedDirectory {
	return &seedDirectory{hash: hash, n: n}
}

func (d *seedDirectory) email(i int) string {
	return fmt.Sprintf("load-%d@example.com", i)
}

func (d *seedDirectory) LookupByEmail(_ context.Context, email string) (*authcore.Principal, error) {
	var i int
	if _, err := fmt.Sscanf(email, "load-%d@example.com", &i); err != nil || i < 0 || i >= d.n {
		return nil, authcore.ErrPrincipalNotFound
	}
	return d.principal(i), nil
}

func (d *seedDirectory) LookupByID(_ context.Context, id uint64) (*authcore.Principal, error) {
	i := int(id) - 1
	if i < 0 || i >= d.n {
		return nil, authcore.ErrPrincipalNotFound
	}
	return d.principal(i), nil
}

func (d *seedDirectory) principal(i int) *authcore.Principal {
	return &authcore.Principal{
		ID:            uint64(i + 1),
		Email:         d.email(i),
		PasswordHash:  d.hash,
		Roles:         []string{"user"},
		Enabled:       true,
		EmailVerified: true,
	}
}
