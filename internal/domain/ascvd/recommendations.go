package ascvd

import "time"

// DefaultSBPThreshold is the systolic pressure, in mmHg, above which a
// blood pressure reduction advisory is raised.
const DefaultSBPThreshold = 140.0

// StopSmokingAdvised reports whether a smoking cessation advisory applies.
func StopSmokingAdvised(category SmokingCategory) bool {
	return category.Smoker()
}

// ReduceBloodPressureAdvised reports whether sbp is strictly above threshold.
func ReduceBloodPressureAdvised(sbp, threshold float64) bool {
	return sbp > threshold
}

// Advisories evaluates the recommendation rules against the raw records.
// Each rule reads only its own inputs and is skipped when they are absent,
// so advisories do not depend on the risk calculation succeeding.
func Advisories(rec Records, sbpThreshold float64, now time.Time) []Card {
	var cards []Card
	if category, err := SmokingStatus(rec.SmokingStatus); err == nil && StopSmokingAdvised(category) {
		cards = append(cards, Card{ID: CardStopSmoking, Effective: now})
	}
	if sbp, ok := SystolicBP(rec.BloodPressure); ok && ReduceBloodPressureAdvised(sbp, sbpThreshold) {
		cards = append(cards, Card{
			ID:        CardReduceBloodPressure,
			Effective: now,
			Values:    map[string]float64{ParamSystolicBP: sbp},
		})
	}
	return cards
}
