package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SHIFT CLASSIFICATION
// =============================================================================

// ShiftType is derived from a shift's boundaries, never stored.
type ShiftType string

const (
	ShiftEarly ShiftType = "early"
	ShiftNight ShiftType = "night"
	ShiftMixed ShiftType = "mixed"
)

// DefaultNightShare is the share of a shift that must fall in the night
// window for the shift to count as a night shift.
var DefaultNightShare = decimal.NewFromFloat(0.5)

// ClassificationPolicy holds the thresholds used to classify a shift.
// It is carried by the wage configuration active on the shift's date.
type ClassificationPolicy struct {
	NightWindow NightWindow

	// Shifts starting strictly before this clock time with no night overlap are early.
	EarlyShiftBoundary ClockTime

	// Overlap share (0..1) that must be exceeded for a night shift.
	// Zero means DefaultNightShare.
	NightShare decimal.Decimal
}

func (p ClassificationPolicy) nightShare() decimal.Decimal {
	if p.NightShare.IsZero() {
		return DefaultNightShare
	}
	return p.NightShare
}

// Classification is the result of classifying one shift.
type Classification struct {
	Type           ShiftType
	ShiftMinutes   int
	OverlapMinutes int
	StartsEarly    bool
}

// ClassifyShift classifies [start, end):
//   - night: overlap with the night window exceeds the night share of the shift
//   - early: starts before the early boundary and has no night overlap
//   - mixed: everything else
func ClassifyShift(start, end time.Time, p ClassificationPolicy) (Classification, error) {
	total, err := DurationMinutes(start, end)
	if err != nil {
		return Classification{}, err
	}
	ov := OverlapMinutes(start, end, p.NightWindow)
	startsEarly := start.Hour()*60+start.Minute() < int(p.EarlyShiftBoundary)

	c := Classification{ShiftMinutes: total, OverlapMinutes: ov, StartsEarly: startsEarly}

	// A shift shorter than a minute truncates to zero minutes: no night share.
	share := decimal.Zero
	if total > 0 {
		share = decimal.NewFromInt(int64(ov)).Div(decimal.NewFromInt(int64(total)))
	}
	switch {
	case share.GreaterThan(p.nightShare()):
		c.Type = ShiftNight
	case startsEarly && ov == 0:
		c.Type = ShiftEarly
	default:
		c.Type = ShiftMixed
	}
	return c, nil
}

// MinuteBuckets splits actual work minutes by shift type.
// Early + Night + Neutral always equals the actual minutes split.
type MinuteBuckets struct {
	Early   int
	Night   int
	Neutral int
}

// Split distributes actualMinutes into buckets:
//   - night shift: everything is night
//   - early shift: everything is early
//   - mixed: the night part is proportional to the overlap (truncated);
//     the remainder is early when the shift started before the early
//     boundary, neutral otherwise
func (c Classification) Split(actualMinutes int) MinuteBuckets {
	switch c.Type {
	case ShiftNight:
		return MinuteBuckets{Night: actualMinutes}
	case ShiftEarly:
		return MinuteBuckets{Early: actualMinutes}
	}

	night := 0
	if c.ShiftMinutes > 0 {
		night = actualMinutes * c.OverlapMinutes / c.ShiftMinutes
	}
	rest := actualMinutes - night
	if c.StartsEarly {
		return MinuteBuckets{Early: rest, Night: night}
	}
	return MinuteBuckets{Night: night, Neutral: rest}
}

func (b MinuteBuckets) Add(o MinuteBuckets) MinuteBuckets {
	return MinuteBuckets{
		Early:   b.Early + o.Early,
		Night:   b.Night + o.Night,
		Neutral: b.Neutral + o.Neutral,
	}
}
