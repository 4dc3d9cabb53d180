// Command chatgate-loadtest measures session lookups and limiter contention
// against a real or embedded Redis.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mathrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/chatgate/cryptox"
	"github.com/MrEthical07/chatgate/internal/rate"
	"github.com/MrEthical07/chatgate/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 20000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		keys        = flag.Int("limiter-keys", 64, "distinct limiter keys hammered in the limiter phase")
		maxAttempts = flag.Int("max-attempts", 5, "limiter attempts per window")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *keys <= 0 || *maxAttempts <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, ops, limiter-keys and max-attempts must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := connect(*redisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	sealKey := make([]byte, 32)
	if _, err := rand.Read(sealKey); err != nil {
		fmt.Fprintf(os.Stderr, "seal key: %v\n", err)
		os.Exit(1)
	}
	store := session.NewStore(client, "lt:as", sealKey)

	tokens, err := seed(ctx, store, *sessions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	validateStats := runValidatePhase(ctx, store, tokens, *ops, *concurrency)

	limiter, err := rate.New(rate.NewRedisStore(client), "lt:al", rate.Config{MaxAttempts: *maxAttempts, Window: time.Hour})
	if err != nil {
		fmt.Fprintf(os.Stderr, "limiter: %v\n", err)
		os.Exit(1)
	}
	limiterStats, allowed := runLimiterPhase(ctx, limiter, *keys, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("limiter", limiterStats)

	want := int64(-1)
	if capacity := *keys * *maxAttempts; *ops >= capacity {
		want = int64(capacity)
	}
	fmt.Printf("limiter: allowed=%d expected=%d\n", allowed, want)
	if want >= 0 && allowed != want {
		fmt.Fprintln(os.Stderr, "limiter admitted the wrong number of attempts")
		os.Exit(1)
	}
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func seed(ctx context.Context, store *session.Store, n int) ([]string, error) {
	fmt.Printf("seeding %d sessions...\n", n)
	start := time.Now()
	now := time.Now()
	tokens := make([]string, n)
	for i := range tokens {
		token, err := cryptox.GenerateToken()
		if err != nil {
			return nil, err
		}
		sess := &session.Session{
			SchemaVersion: session.CurrentSchemaVersion,
			Identity:      fmt.Sprintf("user-%d@example.com", i%1000),
			CreatedAt:     now,
			LastActivity:  now,
			Authenticated: true,
		}
		if err := store.Put(ctx, token, sess, time.Hour); err != nil {
			return nil, err
		}
		tokens[i] = token
	}
	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return tokens, nil
}

// runWorkers calls op ops times spread over concurrency goroutines and
// collects per-call latency.
func runWorkers(ops, concurrency int, op func(r *mathrand.Rand, i int) error) phaseStats {
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
			r := mathrand.New(mathrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
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
	return computeStats(time.Since(start), latencies, failures)
}

func runValidatePhase(ctx context.Context, store *session.Store, tokens []string, ops, concurrency int) phaseStats {
	return runWorkers(ops, concurrency, func(r *mathrand.Rand, _ int) error {
		token := tokens[r.Intn(len(tokens))]
		sess, err := store.Get(ctx, token)
		if err != nil {
			return err
		}
		sess.LastActivity = time.Now()
		return store.Touch(ctx, token, sess, time.Hour)
	})
}

func runLimiterPhase(ctx context.Context, limiter *rate.Limiter, keys, ops, concurrency int) (phaseStats, int64) {
	var allowed int64
	stats := runWorkers(ops, concurrency, func(_ *mathrand.Rand, i int) error {
		ok, err := limiter.CheckAndConsume(ctx, fmt.Sprintf("key-%d@example.com", i%keys))
		if ok {
			atomic.AddInt64(&allowed, 1)
		}
		return err
	})
	return stats, allowed
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
	return samples[(len(samples)-1)*p/100]
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
