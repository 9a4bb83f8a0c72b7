package services

import "math"

// xpPerLevelUnit scales the quadratic curve: reaching level L takes L*L*xpPerLevelUnit XP.
const xpPerLevelUnit = 100

// LevelInfo is the level derived from a total XP figure.
type LevelInfo struct {
	TotalXP         int64   `json:"total_xp"`
	Level           int64   `json:"level"`
	CurrentLevelXP  int64   `json:"current_level_xp"`
	XPForNextLevel  int64   `json:"xp_for_next_level"`
	XPIntoLevel     int64   `json:"xp_into_level"`
	ProgressPercent float64 `json:"progress_percent"`
}

// CalcLevel returns level = floor(sqrt(totalXP/100)) and the XP needed for the next level.
func CalcLevel(totalXP int64) LevelInfo {
	xp := totalXP
	if xp < 0 {
		xp = 0
	}
	level := isqrt(xp / xpPerLevelUnit)
	floor := level * level * xpPerLevelUnit
	next := (level + 1) * (level + 1) * xpPerLevelUnit

	info := LevelInfo{
		TotalXP:        totalXP,
		Level:          level,
		CurrentLevelXP: floor,
		XPForNextLevel: next,
		XPIntoLevel:    xp - floor,
	}
	info.ProgressPercent = round2(float64(xp-floor) / float64(next-floor) * 100)
	return info
}

// isqrt is floor(sqrt(n)) for n >= 0, corrected for float rounding on large inputs.
func isqrt(n int64) int64 {
	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
