package main

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/chatgate/internal/rate"
	"github.com/MrEthical07/chatgate/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %v", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %v", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %v", got)
	}
}

func TestLimiterPhaseAdmitsExactCapacity(t *testing.T) {
	client := newClient(t)
	limiter, err := rate.New(rate.NewRedisStore(client), "lt:al", rate.Config{MaxAttempts: 3, Window: time.Hour})
	if err != nil {
		t.Fatalf("rate.New: %v", err)
	}

	stats, allowed := runLimiterPhase(context.Background(), limiter, 4, 200, 16)
	if allowed != 12 {
		t.Fatalf("allowed = %d, want 12", allowed)
	}
	if stats.ops != 200 || stats.failures != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestValidatePhase(t *testing.T) {
	client := newClient(t)
	store := session.NewStore(client, "lt:as", make([]byte, 32))

	tokens, err := seed(context.Background(), store, 20)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	stats := runValidatePhase(context.Background(), store, tokens, 100, 8)
	if stats.ops != 100 || stats.failures != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
