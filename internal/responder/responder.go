// Package responder generates simulated conversation replies.
//
// There is no language model behind this: freeform replies are drawn from a
// fixed pool, and scripted replies come from small per-scenario keyword rule
// tables. Randomness is injected so replies are reproducible under a seed.
package responder

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/speakai-labs/speakai/internal/domain"
)

// genericReply is the fallback when no scenario strategy is registered.
const genericReply = "Let me help you with that."

// freeformPool is the fixed set of generic conversational prompts.
var freeformPool = []string{
	"That's interesting! Can you tell me more about that?",
	"I see what you mean. How do you feel about that situation?",
	"That sounds challenging. What do you think you'll do next?",
	"Great point! Have you experienced something similar before?",
	"That's a good observation. What made you think of that?",
}

// Rule maps utterance keywords to a branch reply. Matching is a
// case-insensitive substring check; the first matching rule wins.
type Rule struct {
	Keywords []string
	Reply    string
}

// Strategy holds the reply rules for one scenario, split by the role the
// learner is playing. When the learner is the customer the AI answers as the
// assistant, and vice versa.
type Strategy struct {
	CustomerRules     []Rule
	CustomerFallback  string
	AssistantRules    []Rule
	AssistantFallback string
}

func (st Strategy) reply(utterance string, userRole domain.Role) string {
	rules, fallback := st.CustomerRules, st.CustomerFallback
	if userRole == domain.RoleAssistant {
		rules, fallback = st.AssistantRules, st.AssistantFallback
	}

	lowered := strings.ToLower(utterance)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				return r.Reply
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return genericReply
}

// Generator produces freeform and scripted replies. Safe for concurrent use.
type Generator struct {
	mu         sync.Mutex
	rng        *rand.Rand
	strategies map[string]Strategy
}

// New creates a Generator with the built-in scenario strategies registered.
func New(rng *rand.Rand) *Generator {
	g := &Generator{
		rng:        rng,
		strategies: make(map[string]Strategy),
	}
	for id, st := range builtinStrategies {
		g.Register(id, st)
	}
	return g
}

// Register installs the reply strategy for a scenario id. Adding a scenario
// means registering a strategy here; no shared branching code changes.
func (g *Generator) Register(scenarioID string, st Strategy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.strategies[scenarioID] = st
}

// Freeform returns one reply chosen uniformly from the fixed pool. Total:
// every input, including the empty string, yields a reply.
func (g *Generator) Freeform(_ string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return freeformPool[g.rng.Intn(len(freeformPool))]
}

// Scripted returns the scenario-specific reply for an utterance, given the
// role the learner is playing. Unknown scenarios get a generic reply.
func (g *Generator) Scripted(utterance string, scenario domain.Scenario, userRole domain.Role) string {
	g.mu.Lock()
	st, ok := g.strategies[scenario.ID]
	g.mu.Unlock()
	if !ok {
		return genericReply
	}
	return st.reply(utterance, userRole)
}
