// Package pronunciation provides the simulated pronunciation scorer.
//
// Scores are uniform random integers in [70, 100] with tiered comments;
// there is no acoustic analysis behind them. Randomness is injected so a
// seeded scorer produces a reproducible score sequence.
package pronunciation

import (
	"math/rand"
	"sync"

	"github.com/speakai-labs/speakai/internal/domain"
)

var (
	excellentComments = []string{
		"Excellent pronunciation!",
		"Nearly native-like delivery. Keep it up!",
	}
	goodComments = []string{
		"Good pronunciation, minor improvements needed.",
		"Solid effort. Watch your vowel length on longer words.",
	}
	needsWorkComments = []string{
		"Work on clarity and stress patterns.",
		"Slow down and emphasize each syllable a bit more.",
	}
)

// Scorer produces simulated pronunciation feedback. Safe for concurrent use.
type Scorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Scorer drawing from the given random source.
func New(rng *rand.Rand) *Scorer {
	return &Scorer{rng: rng}
}

// Score returns feedback for an utterance: a uniform score in [70, 100] and
// a comment matching the score tier.
func (s *Scorer) Score(_ string) domain.PronunciationFeedback {
	s.mu.Lock()
	defer s.mu.Unlock()

	score := domain.MinScore + s.rng.Intn(domain.MaxScore-domain.MinScore+1)
	return domain.PronunciationFeedback{
		Score:   score,
		Comment: s.comment(score),
	}
}

func (s *Scorer) comment(score int) string {
	pool := needsWorkComments
	switch {
	case score > domain.ExcellentThreshold:
		pool = excellentComments
	case score > domain.GoodThreshold:
		pool = goodComments
	}
	return pool[s.rng.Intn(len(pool))]
}
