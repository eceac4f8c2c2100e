// Package budget decides when monthly spending crosses alert thresholds.
package budget

// Threshold is a share of the monthly limit, in percent.
type Threshold int

const (
	Warning   Threshold = 80
	Critical  Threshold = 90
	Exhausted Threshold = 100
)

// Thresholds in ascending order.
var Thresholds = []Threshold{Warning, Critical, Exhausted}

// Amount returns the spend at which t is reached for the given limit.
func (t Threshold) Amount(limit float64) float64 {
	return limit * float64(t) / 100
}

// Crossed returns the thresholds passed by moving from before to after.
// A threshold counts once: it must be unreached before and reached after.
// A non-positive limit disables alerts.
func Crossed(before, after, limit float64) []Threshold {
	if limit <= 0 {
		return nil
	}

	var crossed []Threshold
	for _, t := range Thresholds {
		mark := t.Amount(limit)
		if before < mark && after >= mark {
			crossed = append(crossed, t)
		}
	}
	return crossed
}

// Reached reports whether spent has hit a positive limit.
func Reached(spent, limit float64) bool {
	return limit > 0 && spent >= limit
}

// UsagePercent is spent as a percentage of limit, zero when there is no limit.
func UsagePercent(spent, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return spent / limit * 100
}

// Highest returns the largest threshold in ts, or zero.
func Highest(ts []Threshold) Threshold {
	var max Threshold
	for _, t := range ts {
		if t > max {
			max = t
		}
	}
	return max
}
