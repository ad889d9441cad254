package app

import "time"

// ScoreConfig is the speed-weighted scoring policy. A correct answer earns
// MaxPoints when submitted instantly, decaying linearly to MinPoints as
// the elapsed time approaches the question limit. Incorrect answers always
// score zero. The exact curve is policy, not protocol, so it is wired
// through configuration instead of being hard-coded.
type ScoreConfig struct {
	MinPoints int
	MaxPoints int
}

// DefaultScoreConfig mirrors the 500..1000 range the product launched with.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{MinPoints: 500, MaxPoints: 1000}
}

// Points computes the award for a correct answer with the given remaining
// time. The result is monotonically non-increasing in elapsed time and
// clamped to [MinPoints, MaxPoints].
func (c ScoreConfig) Points(remaining, limit time.Duration) int {
	if limit <= 0 {
		return c.MaxPoints
	}
	if remaining < 0 {
		remaining = 0
	}
	if remaining > limit {
		remaining = limit
	}
	spread := int64(c.MaxPoints - c.MinPoints)
	bonus := spread * int64(remaining) / int64(limit)
	return c.MinPoints + int(bonus)
}
