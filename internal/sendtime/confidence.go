package sendtime

const (
	// BaseConfidence is the score of a result that needed no adjustment.
	BaseConfidence = 90

	// AdjustmentPenalty is subtracted for every adjustment made.
	AdjustmentPenalty = 10

	// FallbackConfidence is the ceiling for fallback results.
	FallbackConfidence = 30
)

// Score derives a 0-100 confidence from the adjustments a result needed.
// Fallback results never score above FallbackConfidence.
func Score(adjustments []string, fallbackUsed bool) int {
	score := BaseConfidence - AdjustmentPenalty*len(adjustments)
	if fallbackUsed && score > FallbackConfidence {
		score = FallbackConfidence
	}
	if score < 0 {
		score = 0
	}
	return score
}
