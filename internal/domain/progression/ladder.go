// Package progression owns the XP/level ledger and its cascading conversion
// across level boundaries.
package progression

import "math"

// Level bounds.
const (
	MinLevel = 1
	MaxLevel = 5
)

// levelCaps is the closed capacity table: the XP a level holds before the
// next promotion. The top tier is unbounded. Level 1 is an explicit entry;
// downward cascades clamp at the floor rather than consulting a default.
var levelCaps = [MaxLevel + 1]int64{
	0, // unused, levels are 1-based
	500,
	2000,
	8000,
	25000,
	math.MaxInt64,
}

// Capacity returns the XP capacity of a level. Levels are clamped into
// [MinLevel, MaxLevel], so a cascaded lookup below the floor yields the
// floor capacity and the top tier reads as effectively infinite.
func Capacity(level int) int64 {
	if level < MinLevel {
		level = MinLevel
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levelCaps[level]
}

// Affordable reports whether an actor at (xp, level) can absorb cost, given
// that spending may cascade down levels, each drop refunding the capacity of
// the level landed on. It mirrors Update's downward cascade without
// persisting anything.
func Affordable(xp int64, level int, cost int64) bool {
	if cost <= 0 {
		return true
	}
	if xp >= cost {
		return true
	}
	needed := cost - xp
	for lvl := level; lvl > MinLevel && needed > 0; lvl-- {
		needed -= Capacity(lvl - 1)
	}
	return needed <= 0
}
