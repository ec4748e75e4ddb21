package cache

import (
	"context"
	"testing"
	"time"

	"github.com/lingxi-works/fincore/internal/config"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("disabled cache should not expose a client")
	}

	ctx := context.Background()
	if err := SetCurrencyTable(ctx, []CurrencyRateSnapshot{{Code: "CNY", FixedRate: "1", IsBase: true}}, time.Minute); err != nil {
		t.Fatalf("set on disabled cache should be a no-op: %v", err)
	}
	items, hit, err := GetCurrencyTable(ctx)
	if err != nil || hit || items != nil {
		t.Fatalf("disabled cache should miss, got %v %v %v", items, hit, err)
	}
	if _, hit, err := GetAdminAuthState(ctx, 1); err != nil || hit {
		t.Fatalf("disabled auth state cache should miss, got %v %v", hit, err)
	}
	if err := Close(); err != nil {
		t.Fatalf("close without client failed: %v", err)
	}
}

func TestBuildKeyUsesPrefix(t *testing.T) {
	if got := BuildKey(" finance:currency_table "); got != redisPrefix+":finance:currency_table" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := BuildKey(""); got != redisPrefix {
		t.Fatalf("empty key should be the prefix, got %s", got)
	}
}

func TestBuildOptionsDefaults(t *testing.T) {
	opts := buildOptions(&config.RedisConfig{DB: 2, PoolSize: 4}, time.Second)
	if opts.Addr != "127.0.0.1:6379" || opts.DB != 2 || opts.PoolSize != 4 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
