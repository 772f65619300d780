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
	"github.com/movaro/authgate/internal"
	"github.com/movaro/authgate/session"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

type loadConfig struct {
	Sessions    int    `yaml:"sessions"`
	Concurrency int    `yaml:"concurrency"`
	Ops         int    `yaml:"ops"`
	RedisAddr   string `yaml:"redis_addr"`
	Prefix      string `yaml:"prefix"`
}

type sessionState struct {
	hash string
	mu   sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 100000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (lookup + rekey)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sn", "session key prefix")
		configPath  = flag.String("config", "", "optional YAML config file; flags override file values")
	)
	flag.Parse()

	cfg := loadConfig{
		Sessions:    *sessions,
		Concurrency: *concurrency,
		Ops:         *ops,
		RedisAddr:   *redisAddr,
		Prefix:      *prefix,
	}
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
			os.Exit(2)
		}
		fileCfg := loadConfig{}
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "parse config: %v\n", err)
			os.Exit(2)
		}
		cfg = mergeConfig(fileCfg, cfg)
	}

	if cfg.Sessions <= 0 || cfg.Concurrency <= 0 || cfg.Ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := cfg.RedisAddr
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

	store := session.NewStore(client, cfg.Prefix, nil)

	states := make([]*sessionState, cfg.Sessions)
	fmt.Printf("seeding %d sessions...\n", cfg.Sessions)
	startSeed := time.Now()
	for i := 0; i < cfg.Sessions; i++ {
		hash := internal.HashTokenHex(fmt.Sprintf("refresh-%d", i))
		states[i] = &sessionState{hash: hash}
		if _, err := store.Create(ctx, buildSession(hash, i), 0); err != nil {
			fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	lookupStats := runLookupPhase(ctx, store, states, cfg.Ops, cfg.Concurrency)
	rekeyStats := runRekeyPhase(ctx, store, states, cfg.Ops, cfg.Concurrency)

	fmt.Println("---- results ----")
	printStats("lookup", lookupStats)
	printStats("rekey", rekeyStats)
}

func mergeConfig(base, overrides loadConfig) loadConfig {
	out := base
	if overrides.Sessions > 0 {
		out.Sessions = overrides.Sessions
	}
	if overrides.Concurrency > 0 {
		out.Concurrency = overrides.Concurrency
	}
	if overrides.Ops > 0 {
		out.Ops = overrides.Ops
	}
	if overrides.RedisAddr != "" {
		out.RedisAddr = overrides.RedisAddr
	}
	if overrides.Prefix != "" {
		out.Prefix = overrides.Prefix
	}
	return out
}

func runLookupPhase(ctx context.Context, store *session.Store, states []*sessionState, ops, concurrency int) phaseStats {
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
				state := states[r.Intn(len(states))]
				state.mu.Lock()
				hash := state.hash
				state.mu.Unlock()

				t0 := time.Now()
				_, err := store.Get(ctx, hash)
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

func runRekeyPhase(ctx context.Context, store *session.Store, states []*sessionState, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := states[r.Intn(len(states))]

				state.mu.Lock()
				current := state.hash
				next := internal.HashTokenHex(fmt.Sprintf("%s-%d-%d", current, worker, i))
				accessHash := internal.HashTokenHex(next + "-access")
				t0 := time.Now()
				_, err := store.Rekey(ctx, current, next, accessHash, time.Now().Add(15*time.Minute), time.Now().Add(24*time.Hour))
				d := time.Since(t0)
				if err == nil {
					state.hash = next
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

func buildSession(refreshHash string, i int) *session.Session {
	now := time.Now()
	return &session.Session{
		TokenHash:    refreshHash,
		UserID:       fmt.Sprintf("u-%d", i%1024),
		Role:         "customer",
		Email:        fmt.Sprintf("u-%d@example.com", i%1024),
		Fingerprint:  internal.HashTokenHex(fmt.Sprintf("fp-%d", i%1024)),
		IPAddress:    "127.0.0.1",
		UserAgent:    "loadtest",
		AccessHash:   internal.HashTokenHex(fmt.Sprintf("access-%d", i)),
		CreatedAt:    now.UnixMilli(),
		LastActivity: now.UnixMilli(),
		ExpiresAt:    now.Add(24 * time.Hour).Unix(),
	}
}
