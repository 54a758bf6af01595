package resilience

import (
	"testing"
	"time"

	"github.com/kbukum/failsafe/clock"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	clk := clock.NewFake(epoch)
	rl := NewRateLimiter(RateLimitConfig{Limit: 3, Window: time.Minute}, clk)

	for i := 0; i < 3; i++ {
		if !rl.Allow("mail:send") {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if rl.Allow("mail:send") {
		t.Fatal("4th call in the window should be rejected")
	}
	if rl.Remaining("mail:send") != 0 {
		t.Errorf("Remaining = %d, want 0", rl.Remaining("mail:send"))
	}
	if !rl.Allow("calendar:list") {
		t.Error("keys must have independent windows")
	}

	clk.Advance(59 * time.Second)
	if rl.Allow("mail:send") {
		t.Error("window must not reset early")
	}
	clk.Advance(time.Second)
	if !rl.Allow("mail:send") {
		t.Error("window should reset on expiry")
	}
	if rl.Remaining("mail:send") != 2 {
		t.Errorf("Remaining = %d, want 2", rl.Remaining("mail:send"))
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{}, clock.NewFake(epoch))
	cfg := rl.Config()
	if cfg.Limit != 100 || cfg.Window != time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestRateLimiter_PruneAndReset(t *testing.T) {
	clk := clock.NewFake(epoch)
	rl := NewRateLimiter(RateLimitConfig{Limit: 1, Window: time.Second}, clk)
	rl.Allow("a")
	rl.Allow("b")

	rl.Reset("a")
	if !rl.Allow("a") {
		t.Error("reset key should be allowed again")
	}

	clk.Advance(time.Second)
	if n := rl.Prune(); n != 2 {
		t.Errorf("Prune removed %d, want 2", n)
	}
}
