package shield

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

type resolverStub struct {
	lookupAddrFn func(ctx context.Context, addr string) ([]string, error)
	lookupHostFn func(ctx context.Context, host string) ([]string, error)
}

func (r resolverStub) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	if r.lookupAddrFn == nil {
		return nil, errors.New("no ptr")
	}
	return r.lookupAddrFn(ctx, addr)
}

func (r resolverStub) LookupHost(ctx context.Context, host string) ([]string, error) {
	if r.lookupHostFn == nil {
		return nil, errors.New("no host")
	}
	return r.lookupHostFn(ctx, host)
}

func setupShield(t *testing.T, cfg Config, resolver Resolver) (*Shield, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(rdb, cfg, resolver)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestEvaluate_TokenBucket(t *testing.T) {
	s, clock := setupShield(t, DefaultConfig(), nil)
	ctx := context.Background()
	fp := Fingerprint{IP: "203.0.113.7", UserAgent: browserUA, Method: "GET", Path: "/api/posts"}

	for i := 0; i < 15; i++ {
		d, err := s.Evaluate(ctx, fp)
		require.NoError(t, err)
		require.Equal(t, Allow, d, "request %d", i+1)
	}

	d, err := s.Evaluate(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, DenyRateLimit, d)

	// Other addresses have their own bucket.
	d, err = s.Evaluate(ctx, Fingerprint{IP: "203.0.113.8", UserAgent: browserUA, Path: "/api/posts"})
	require.NoError(t, err)
	assert.Equal(t, Allow, d)

	// Partial interval: still empty.
	*clock = clock.Add(9 * time.Second)
	d, _ = s.Evaluate(ctx, fp)
	assert.Equal(t, DenyRateLimit, d)

	// One full interval refills 10 tokens.
	*clock = clock.Add(1 * time.Second)
	for i := 0; i < 10; i++ {
		d, err = s.Evaluate(ctx, fp)
		require.NoError(t, err)
		require.Equal(t, Allow, d, "refilled request %d", i+1)
	}
	d, _ = s.Evaluate(ctx, fp)
	assert.Equal(t, DenyRateLimit, d)
}

func TestEvaluate_RefillCapsAtCapacity(t *testing.T) {
	s, clock := setupShield(t, Config{Capacity: 3, RefillRate: 10, RefillInterval: time.Second}, nil)
	ctx := context.Background()
	fp := Fingerprint{IP: "198.51.100.1", UserAgent: browserUA, Path: "/"}

	for i := 0; i < 3; i++ {
		d, _ := s.Evaluate(ctx, fp)
		require.Equal(t, Allow, d)
	}
	*clock = clock.Add(time.Minute)
	allowed := 0
	for i := 0; i < 5; i++ {
		if d, _ := s.Evaluate(ctx, fp); d == Allow {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
}

func TestEvaluate_FailsOpenWithoutRedis(t *testing.T) {
	s := New(nil, DefaultConfig(), nil)
	for i := 0; i < 50; i++ {
		d, err := s.Evaluate(context.Background(), Fingerprint{IP: "192.0.2.1", UserAgent: browserUA, Path: "/api/posts"})
		require.NoError(t, err)
		require.Equal(t, Allow, d)
	}
}

func TestEvaluate_FailsOpenOnRedisError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	s := New(rdb, DefaultConfig(), nil)
	mr.Close()

	d, err := s.Evaluate(context.Background(), Fingerprint{IP: "192.0.2.1", UserAgent: browserUA, Path: "/api/posts"})
	assert.Error(t, err)
	assert.Equal(t, Allow, d)
}

func TestEvaluate_Bots(t *testing.T) {
	s := New(nil, DefaultConfig(), resolverStub{})
	ctx := context.Background()

	tests := []struct {
		name string
		ua   string
		want Decision
	}{
		{"browser", browserUA, Allow},
		{"empty agent", "", DenyBot},
		{"curl", "curl/8.4.0", DenyBot},
		{"python", "python-requests/2.31", DenyBot},
		{"generic crawler", "SomeCrawler/1.0 (+http://example.com)", DenyBot},
		{"unverified googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", DenySpoofed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := s.Evaluate(ctx, Fingerprint{IP: "66.249.66.1", UserAgent: tt.ua, Path: "/api/posts"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestEvaluate_VerifiedCrawlerAllowed(t *testing.T) {
	resolver := resolverStub{
		lookupAddrFn: func(_ context.Context, addr string) ([]string, error) {
			if addr == "66.249.66.1" {
				return []string{"crawl-66-249-66-1.googlebot.com."}, nil
			}
			return nil, errors.New("nxdomain")
		},
		lookupHostFn: func(_ context.Context, host string) ([]string, error) {
			if host == "crawl-66-249-66-1.googlebot.com" {
				return []string{"66.249.66.1"}, nil
			}
			return nil, errors.New("nxdomain")
		},
	}
	s := New(nil, DefaultConfig(), resolver)
	ua := "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

	d, err := s.Evaluate(context.Background(), Fingerprint{IP: "66.249.66.1", UserAgent: ua, Path: "/api/posts"})
	require.NoError(t, err)
	assert.Equal(t, Allow, d)

	// Same agent from an address whose PTR does not confirm.
	d, err = s.Evaluate(context.Background(), Fingerprint{IP: "203.0.113.9", UserAgent: ua, Path: "/api/posts"})
	require.NoError(t, err)
	assert.Equal(t, DenySpoofed, d)
}

func TestEvaluate_ForwardConfirmationRequired(t *testing.T) {
	resolver := resolverStub{
		lookupAddrFn: func(context.Context, string) ([]string, error) {
			return []string{"fake.googlebot.com.evil.example."}, nil
		},
		lookupHostFn: func(context.Context, string) ([]string, error) {
			return []string{"203.0.113.9"}, nil
		},
	}
	s := New(nil, DefaultConfig(), resolver)
	d, err := s.Evaluate(context.Background(), Fingerprint{IP: "203.0.113.9", UserAgent: "bingbot/2.0", Path: "/"})
	require.NoError(t, err)
	assert.Equal(t, DenySpoofed, d)
}

func TestEvaluate_ShieldRules(t *testing.T) {
	s := New(nil, DefaultConfig(), nil)
	tests := []Fingerprint{
		{Path: "/api/posts/../../etc/passwd"},
		{Path: "/api/posts", RawQuery: "q=%3Cscript%3Ealert(1)%3C%2Fscript%3E"},
		{Path: "/api/users/profile/x", RawQuery: "name=1%20UNION%20SELECT%20password"},
		{Path: "/.env"},
	}
	for _, fp := range tests {
		fp.UserAgent = browserUA
		fp.IP = "192.0.2.10"
		d, err := s.Evaluate(context.Background(), fp)
		require.NoError(t, err)
		assert.Equal(t, DenyShield, d, fp.Path+"?"+fp.RawQuery)
	}
}

func TestDecision_Denied(t *testing.T) {
	assert.False(t, Allow.Denied())
	for _, d := range []Decision{DenyRateLimit, DenyBot, DenySpoofed, DenyShield} {
		assert.True(t, d.Denied())
	}
}
