package pronunciation

import (
	"math/rand"
	"testing"

	"github.com/speakai-labs/speakai/internal/domain"
)

func TestScoreIsWithinBounds(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))

	for i := 0; i < 500; i++ {
		fb := s.Score("hello there")
		if fb.Score < domain.MinScore || fb.Score > domain.MaxScore {
			t.Fatalf("Score %d out of [%d, %d]", fb.Score, domain.MinScore, domain.MaxScore)
		}
		if fb.Comment == "" {
			t.Fatal("Expected a non-empty comment")
		}
	}
}

func TestScoreCoversFullRange(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))

	seen := make(map[int]bool)
	for i := 0; i < 5000; i++ {
		seen[s.Score("hello").Score] = true
	}
	if !seen[domain.MinScore] || !seen[domain.MaxScore] {
		t.Errorf("Expected both bounds reachable, min=%v max=%v", seen[domain.MinScore], seen[domain.MaxScore])
	}
}

func TestCommentTiers(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))

	inPool := func(comment string, pool []string) bool {
		for _, c := range pool {
			if c == comment {
				return true
			}
		}
		return false
	}

	tests := []struct {
		score int
		pool  []string
	}{
		{100, excellentComments},
		{86, excellentComments},
		{85, goodComments}, // boundary: 85 is not excellent
		{76, goodComments},
		{75, needsWorkComments}, // boundary: 75 is not good
		{70, needsWorkComments},
	}

	for _, tt := range tests {
		comment := s.comment(tt.score)
		if !inPool(comment, tt.pool) {
			t.Errorf("Score %d: comment %q not in expected tier pool", tt.score, comment)
		}
	}
}

func TestScoreIsDeterministicUnderSeed(t *testing.T) {
	s1 := New(rand.New(rand.NewSource(7)))
	s2 := New(rand.New(rand.NewSource(7)))

	for i := 0; i < 20; i++ {
		fb1 := s1.Score("hello")
		fb2 := s2.Score("hello")
		if fb1 != fb2 {
			t.Fatalf("Call %d diverged under the same seed: %+v vs %+v", i, fb1, fb2)
		}
	}
}
