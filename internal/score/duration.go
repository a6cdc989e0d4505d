package score

const (
	TypeWhole     = "whole"
	TypeHalf      = "half"
	TypeQuarter   = "quarter"
	TypeEighth    = "eighth"
	TypeSixteenth = "16th"
)

// durationTicks maps a duration type to quarter-note ticks.
var durationTicks = map[string]float64{
	TypeWhole:     4,
	TypeHalf:      2,
	TypeQuarter:   1,
	TypeEighth:    0.5,
	TypeSixteenth: 0.25,
}

// DurationTicks returns the length of a duration type in quarter-note ticks.
// Unknown types count as one quarter.
func DurationTicks(durationType string) float64 {
	if t, ok := durationTicks[durationType]; ok {
		return t
	}
	return 1
}

// TypeForTicks is the inverse of DurationTicks. Lengths without a matching type are labelled quarter.
func TypeForTicks(ticks float64) string {
	switch ticks {
	case 4:
		return TypeWhole
	case 2:
		return TypeHalf
	case 1:
		return TypeQuarter
	case 0.5:
		return TypeEighth
	case 0.25:
		return TypeSixteenth
	default:
		return TypeQuarter
	}
}
