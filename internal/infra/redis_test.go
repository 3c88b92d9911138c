package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), "")
	if err != nil {
		t.Fatalf("new redis client: %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("expected v, got %q", got)
	}
}

func TestNewRedisClientErrors(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := NewRedisClient(context.Background(), "not-a-url", ""); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}

func TestNewPostgresPoolRequiresURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), "", "minibank"); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := NewPostgresPool(context.Background(), "://bad", "minibank"); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}
