package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcLevel(t *testing.T) {
	cases := []struct {
		xp    int64
		level int64
		next  int64
	}{
		{0, 0, 100},
		{99, 0, 100},
		{100, 1, 400},
		{399, 1, 400},
		{400, 2, 900},
		{899, 2, 900},
		{900, 3, 1600},
		{1_000_000, 100, 1_020_100},
	}
	for _, c := range cases {
		info := CalcLevel(c.xp)
		assert.Equal(t, c.level, info.Level, "level for %d", c.xp)
		assert.Equal(t, c.next, info.XPForNextLevel, "next for %d", c.xp)
	}
}

func TestCalcLevelMatchesFormula(t *testing.T) {
	prev := int64(0)
	for xp := int64(0); xp <= 20000; xp += 7 {
		info := CalcLevel(xp)
		want := int64(math.Floor(math.Sqrt(float64(xp) / 100)))
		assert.Equal(t, want, info.Level, "xp %d", xp)
		assert.Equal(t, (want+1)*(want+1)*100, info.XPForNextLevel)
		assert.GreaterOrEqual(t, info.Level, prev)
		prev = info.Level
	}
}

func TestCalcLevelProgress(t *testing.T) {
	info := CalcLevel(250)
	assert.Equal(t, int64(1), info.Level)
	assert.Equal(t, int64(100), info.CurrentLevelXP)
	assert.Equal(t, int64(150), info.XPIntoLevel)
	assert.InDelta(t, 50.0, info.ProgressPercent, 0.001)
}

func TestCalcLevelNegativeClampsToZero(t *testing.T) {
	info := CalcLevel(-50)
	assert.Equal(t, int64(0), info.Level)
	assert.Equal(t, int64(100), info.XPForNextLevel)
	assert.Equal(t, int64(-50), info.TotalXP)
}
