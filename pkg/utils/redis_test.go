package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisConfigWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   RedisConfig
		want RedisConfig
	}{
		{
			name: "zero value gets all defaults",
			in:   RedisConfig{Addr: "localhost:6379"},
			want: RedisConfig{
				Addr:            "localhost:6379",
				DialTimeout:     3 * time.Second,
				ReadTimeout:     2 * time.Second,
				WriteTimeout:    2 * time.Second,
				PoolSize:        20,
				MinIdleConns:    0,
				PoolTimeout:     4 * time.Second,
				ConnMaxIdleTime: 5 * time.Minute,
				ConnMaxLifetime: 30 * time.Minute,
				PingTimeout:     2 * time.Second,
			},
		},
		{
			name: "explicit values survive",
			in: RedisConfig{
				Addr:            "redis:6380",
				DialTimeout:     time.Second,
				ReadTimeout:     time.Second,
				WriteTimeout:    time.Second,
				PoolSize:        5,
				MinIdleConns:    2,
				PoolTimeout:     time.Second,
				ConnMaxIdleTime: time.Minute,
				ConnMaxLifetime: time.Hour,
				PingTimeout:     time.Second,
			},
			want: RedisConfig{
				Addr:            "redis:6380",
				DialTimeout:     time.Second,
				ReadTimeout:     time.Second,
				WriteTimeout:    time.Second,
				PoolSize:        5,
				MinIdleConns:    2,
				PoolTimeout:     time.Second,
				ConnMaxIdleTime: time.Minute,
				ConnMaxLifetime: time.Hour,
				PingTimeout:     time.Second,
			},
		},
		{
			name: "negative idle conns clamp to zero",
			in:   RedisConfig{Addr: "localhost:6379", MinIdleConns: -3},
			want: RedisConfig{
				Addr:            "localhost:6379",
				DialTimeout:     3 * time.Second,
				ReadTimeout:     2 * time.Second,
				WriteTimeout:    2 * time.Second,
				PoolSize:        20,
				MinIdleConns:    0,
				PoolTimeout:     4 * time.Second,
				ConnMaxIdleTime: 5 * time.Minute,
				ConnMaxLifetime: 30 * time.Minute,
				PingTimeout:     2 * time.Second,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.withDefaults(); got != tc.want {
				t.Fatalf("withDefaults() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestVersionedSetScriptCompiles(t *testing.T) {
	// Compile-time smoke test: the script should be initialized.
	if versionedSetScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestVersionedSetRejectsBadArguments(t *testing.T) {
	ctx := context.Background()
	// Never dialed; the argument checks fire before any command is sent.
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})

	if _, err := VersionedSet(ctx, nil, "k", []byte("{}"), 1, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := VersionedSet(ctx, rdb, "", []byte("{}"), 1, time.Minute); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := VersionedSet(ctx, rdb, "k", []byte("{}"), 0, time.Minute); err == nil {
		t.Fatalf("expected error for non-positive version")
	}
	if _, err := VersionedSet(ctx, rdb, "k", []byte("{}"), 1, 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}
