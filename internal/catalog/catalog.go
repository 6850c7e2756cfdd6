// Package catalog provides the scripted role-play scenario catalog.
//
// The catalog ships with a fixed built-in set, seeded into the store at
// startup. After seeding, the list is deterministic: same order, same
// contents on every call.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/speakai-labs/speakai/internal/domain"
	"github.com/speakai-labs/speakai/internal/store"
)

// ErrNotFound is returned when a scenario id is not in the catalog.
var ErrNotFound = errors.New("scenario not found")

// builtin is the shipped scenario set, in display order.
var builtin = []domain.Scenario{
	{
		ID:               "pizza-order",
		Name:             "Pizza Order",
		Description:      "Practice ordering pizza online",
		Context:          "You are at Tony's Pizza. The menu includes Margherita ($12), Pepperoni ($14), Hawaiian ($15), and Supreme ($18).",
		CustomerOpening:  "Hi, I'd like to order a pizza for delivery.",
		AssistantOpening: "Hello! Welcome to Tony's Pizza. How can I help you today?",
	},
	{
		ID:               "hotel-booking",
		Name:             "Hotel Booking",
		Description:      "Practice booking a hotel room",
		Context:          "You are at Grand Hotel. Standard rooms are $120/night, Deluxe rooms are $180/night.",
		CustomerOpening:  "Hi, I need to book a room for next weekend.",
		AssistantOpening: "Good day! Welcome to Grand Hotel. I'd be happy to help you with your reservation.",
	},
	{
		ID:               "job-interview",
		Name:             "Job Interview",
		Description:      "Practice answering common interview questions",
		Context:          "You are interviewing for a junior marketing position at Brightline Media. The interviewer wants to hear about your experience and motivation.",
		CustomerOpening:  "Good morning, thank you for inviting me. I'm excited to be here.",
		AssistantOpening: "Good morning! Thanks for coming in today. Shall we start with you telling me a bit about yourself?",
	},
	{
		ID:               "coffee-shop",
		Name:             "Coffee Shop",
		Description:      "Practice ordering drinks and small talk at a cafe",
		Context:          "You are at Riverside Coffee. The menu includes espresso ($3), latte ($4.50), cappuccino ($4.50), and cold brew ($5).",
		CustomerOpening:  "Hi there, could I get a coffee to go?",
		AssistantOpening: "Hi! Welcome to Riverside Coffee. What can I get started for you?",
	},
}

// Builtin returns a copy of the shipped scenario set.
func Builtin() []domain.Scenario {
	out := make([]domain.Scenario, len(builtin))
	copy(out, builtin)
	return out
}

// Service exposes the scenario catalog backed by the store.
type Service struct {
	repo store.Repository
}

// NewService creates a catalog service. Call Seed before serving requests.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// Seed validates the built-in scenarios and inserts any that are missing
// from the store. Existing rows win, so edits made directly in the database
// survive restarts.
func (s *Service) Seed(ctx context.Context) error {
	for i := range builtin {
		if err := builtin[i].Validate(); err != nil {
			return fmt.Errorf("built-in catalog invalid: %w", err)
		}
	}
	if err := s.repo.SeedScenarios(ctx, builtin); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}

// List returns all scenarios in their fixed display order.
func (s *Service) List(ctx context.Context) ([]domain.Scenario, error) {
	scenarios, err := s.repo.ListScenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	return scenarios, nil
}

// Get returns the scenario with the given id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*domain.Scenario, error) {
	sc, err := s.repo.GetScenario(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", id, err)
	}
	if sc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sc, nil
}
