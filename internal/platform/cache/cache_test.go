package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNop_AlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Nop
	if err := c.Set(ctx, "k", []string{"09:00"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var out []string
	hit, err := c.Get(ctx, "k", &out)
	if err != nil || hit {
		t.Errorf("expected miss, got hit=%v err=%v", hit, err)
	}
	if err := c.DeletePattern(ctx, "*"); err != nil {
		t.Errorf("DeletePattern: %v", err)
	}
}

func TestConnect_RejectsBadURL(t *testing.T) {
	if _, err := Connect(context.Background(), "not-a-url://x"); err == nil {
		t.Error("expected parse error")
	}
}

func TestRedis_UnreachableServerErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewRedis(client, "test:", time.Minute)
	var out []string
	if _, err := c.Get(context.Background(), "k", &out); err == nil {
		t.Error("expected error from unreachable redis")
	}
	if err := c.Set(context.Background(), "k", out); err == nil {
		t.Error("expected error from unreachable redis")
	}
}
