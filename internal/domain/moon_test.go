package domain

import (
	"errors"
	"testing"
)

func TestParsePhase(t *testing.T) {
	cases := []struct {
		raw  string
		want Phase
	}{
		{"New Moon", PhaseNewMoon},
		{"new moon", PhaseNewMoon},
		{"NewMoon", PhaseNewMoon},
		{"new_moon", PhaseNewMoon},
		{"  First Quarter  ", PhaseFirstQuarter},
		{"first-quarter", PhaseFirstQuarter},
		{"FULL MOON", PhaseFullMoon},
		{"Last Quarter", PhaseLastQuarter},
		{"third quarter", PhaseLastQuarter},
	}

	for _, tc := range cases {
		got, err := ParsePhase(tc.raw)
		if err != nil {
			t.Errorf("ParsePhase(%q) returned error: %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePhase(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParsePhaseUnknown(t *testing.T) {
	for _, raw := range []string{"", "waxing gibbous", "moon", "quarter"} {
		if _, err := ParsePhase(raw); !errors.Is(err, ErrUnknownPhase) {
			t.Errorf("ParsePhase(%q) error = %v, want ErrUnknownPhase", raw, err)
		}
	}
}

func TestCanonicalPhaseOrder(t *testing.T) {
	want := [4]Phase{PhaseNewMoon, PhaseFirstQuarter, PhaseFullMoon, PhaseLastQuarter}
	if CanonicalPhases != want {
		t.Fatalf("canonical order = %v, want %v", CanonicalPhases, want)
	}
}

func TestIsValidPeriod(t *testing.T) {
	for _, cycles := range PeriodOptions {
		if !IsValidPeriod(cycles) {
			t.Errorf("IsValidPeriod(%d) = false, want true", cycles)
		}
	}
	for _, cycles := range []int{0, -1, 2, 5, 13, 85, 100} {
		if IsValidPeriod(cycles) {
			t.Errorf("IsValidPeriod(%d) = true, want false", cycles)
		}
	}
}

func TestPeriodLabel(t *testing.T) {
	cases := map[int]string{
		1:  "1 cycle (~30 days)",
		3:  "3 cycles (~89 days)",
		12: "12 cycles (~354 days)",
		84: "84 cycles (~2478 days)",
	}
	for cycles, want := range cases {
		if got := PeriodLabel(cycles); got != want {
			t.Errorf("PeriodLabel(%d) = %q, want %q", cycles, got, want)
		}
	}
}
