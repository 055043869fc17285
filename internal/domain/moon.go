package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Phase is one of the four canonical lunar cycle markers.
type Phase string

const (
	PhaseNewMoon      Phase = "New Moon"
	PhaseFirstQuarter Phase = "First Quarter"
	PhaseFullMoon     Phase = "Full Moon"
	PhaseLastQuarter  Phase = "Last Quarter"
)

// CanonicalPhases is the fixed output order of every aggregation.
var CanonicalPhases = [4]Phase{
	PhaseNewMoon,
	PhaseFirstQuarter,
	PhaseFullMoon,
	PhaseLastQuarter,
}

var ErrUnknownPhase = fmt.Errorf("unknown moon phase")

// ParsePhase normalizes a raw phase label. Accepts the canonical names
// plus the spaceless variants some exports use ("NewMoon", "new_moon").
func ParsePhase(raw string) (Phase, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "_", " ")
	key = strings.ReplaceAll(key, "-", " ")
	key = strings.Join(strings.Fields(key), " ")

	switch key {
	case "new moon", "newmoon":
		return PhaseNewMoon, nil
	case "first quarter", "firstquarter":
		return PhaseFirstQuarter, nil
	case "full moon", "fullmoon":
		return PhaseFullMoon, nil
	case "last quarter", "lastquarter", "third quarter":
		return PhaseLastQuarter, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, raw)
}

// MoonRow is one calendar day with a recorded moon phase. The daily
// price range is optional; rows without a usable value still count as
// phase samples but are excluded from every statistic.
type MoonRow struct {
	Date              time.Time           `json:"date"`
	Phase             Phase               `json:"phase"`
	PriceRangePercent decimal.NullDecimal `json:"price_range_percent"`
}

// PriceRow is one calendar day of Bitcoin price-range volatility.
type PriceRow struct {
	Date              time.Time           `json:"date"`
	PriceRangePercent decimal.NullDecimal `json:"price_range_percent"`
}

// LunarCycle is one recorded New-Moon-to-New-Moon span.
type LunarCycle struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}
