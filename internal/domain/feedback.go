package domain

// Pronunciation score bounds and comment tier thresholds.
const (
	MinScore = 70
	MaxScore = 100

	// Scores above ExcellentThreshold get an "excellent" comment; scores above
	// GoodThreshold (but not above ExcellentThreshold) get a "good" comment;
	// everything else gets a "needs improvement" comment.
	ExcellentThreshold = 85
	GoodThreshold      = 75
)

// PronunciationFeedback is the simulated score for the most recent utterance.
// It is replaced wholesale on every utterance and cleared on reset.
type PronunciationFeedback struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}
