package app

import (
	"testing"
	"time"
)

func TestPointsBounds(t *testing.T) {
	cfg := DefaultScoreConfig()
	limit := 30 * time.Second

	if got := cfg.Points(limit, limit); got != cfg.MaxPoints {
		t.Fatalf("instant answer should earn max, got %d", got)
	}
	if got := cfg.Points(0, limit); got != cfg.MinPoints {
		t.Fatalf("boundary answer should earn min, got %d", got)
	}
	if got := cfg.Points(-time.Second, limit); got != cfg.MinPoints {
		t.Fatalf("negative remaining should clamp to min, got %d", got)
	}
	if got := cfg.Points(2*limit, limit); got != cfg.MaxPoints {
		t.Fatalf("remaining above limit should clamp to max, got %d", got)
	}
	if got := cfg.Points(time.Second, 0); got != cfg.MaxPoints {
		t.Fatalf("zero limit should earn max, got %d", got)
	}
}

func TestPointsMonotonicInElapsedTime(t *testing.T) {
	cfg := DefaultScoreConfig()
	limit := 30 * time.Second

	prev := cfg.MaxPoints + 1
	for elapsed := time.Duration(0); elapsed <= limit; elapsed += 100 * time.Millisecond {
		got := cfg.Points(limit-elapsed, limit)
		if got > prev {
			t.Fatalf("points increased with elapsed time: %d after %d at %v", got, prev, elapsed)
		}
		if got < cfg.MinPoints || got > cfg.MaxPoints {
			t.Fatalf("points out of range at %v: %d", elapsed, got)
		}
		prev = got
	}
}

func TestPointsCustomCurve(t *testing.T) {
	cfg := ScoreConfig{MinPoints: 100, MaxPoints: 200}
	limit := 20 * time.Second

	if got := cfg.Points(10*time.Second, limit); got != 150 {
		t.Fatalf("expected midpoint 150, got %d", got)
	}
}
