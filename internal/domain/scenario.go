package domain

import "fmt"

// Role is the side of a scripted scenario the human learner plays.
// The AI always plays the complementary side.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role string from the API.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleAssistant:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Complement returns the opposite side of the conversation.
func (r Role) Complement() Role {
	if r == RoleCustomer {
		return RoleAssistant
	}
	return RoleCustomer
}

// Scenario is a scripted role-play situation with one opening line per role.
// Scenarios are loaded once from the catalog and never mutated.
type Scenario struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Context          string `json:"context"`
	CustomerOpening  string `json:"customer_opening"`
	AssistantOpening string `json:"assistant_opening"`
}

// OpeningFor returns the scripted opening line spoken by the given role.
func (s *Scenario) OpeningFor(role Role) string {
	if role == RoleCustomer {
		return s.CustomerOpening
	}
	return s.AssistantOpening
}

// Validate checks the catalog invariant: every field must be non-empty.
func (s *Scenario) Validate() error {
	switch {
	case s.ID == "":
		return fmt.Errorf("scenario id cannot be empty")
	case s.Name == "":
		return fmt.Errorf("scenario %s: name cannot be empty", s.ID)
	case s.Description == "":
		return fmt.Errorf("scenario %s: description cannot be empty", s.ID)
	case s.Context == "":
		return fmt.Errorf("scenario %s: context cannot be empty", s.ID)
	case s.CustomerOpening == "":
		return fmt.Errorf("scenario %s: customer opening cannot be empty", s.ID)
	case s.AssistantOpening == "":
		return fmt.Errorf("scenario %s: assistant opening cannot be empty", s.ID)
	}
	return nil
}
