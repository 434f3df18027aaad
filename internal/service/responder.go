package service

import (
	"math/rand"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/support-assistant/internal/domain"
)

// ResponderRule maps a keyword class to a canned reply.
type ResponderRule struct {
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
	Suggest  bool     `yaml:"suggest"`
}

type responderRules struct {
	Rules          []ResponderRule `yaml:"rules"`
	GenericPrompts []string        `yaml:"generic_prompts"`
}

// Responder produces replies for free chat outside the guided flows. When
// no rule matches it picks one of the generic prompts pseudo-randomly; the
// random source is injectable so tests can pin the choice.
type Responder struct {
	mu      sync.Mutex
	rules   []ResponderRule
	generic []string
	rng     *rand.Rand
}

var defaultRules = []ResponderRule{
	{
		Keywords: []string{"hello", "hi", "hey", "good morning", "good afternoon"},
		Reply:    "Hello! How can I help you today?",
		Suggest:  true,
	},
	{
		Keywords: []string{"thank", "thanks", "appreciate"},
		Reply:    "You're welcome! Is there anything else I can help with?",
		Suggest:  true,
	},
	{
		Keywords: []string{"bye", "goodbye", "see you"},
		Reply:    "Goodbye! Feel free to come back any time you need support.",
	},
	{
		Keywords: []string{"help", "support", "problem", "issue"},
		Reply:    "I can help with that. Would you like to create a ticket, get instant help, or check an existing ticket?",
		Suggest:  true,
	},
	{
		Keywords: []string{"yes", "yeah", "sure", "ok"},
		Reply:    "Great. What would you like to do next?",
		Suggest:  true,
	},
	{
		Keywords: []string{"no", "nope", "not now"},
		Reply:    "No problem. I'm here if you change your mind.",
	},
}

var defaultGenericPrompts = []string{
	"I'm not sure I follow. Could you tell me a bit more about what you need?",
	"Could you rephrase that? I want to make sure I point you the right way.",
	"I can create a ticket, offer instant help, or check a ticket status. Which would you like?",
	"Tell me more about the problem and I'll do my best to help.",
}

// NewResponder builds a responder with the built-in rule table.
func NewResponder(rng *rand.Rand) *Responder {
	return &Responder{
		rules:   defaultRules,
		generic: defaultGenericPrompts,
		rng:     rng,
	}
}

// LoadRules replaces the built-in table with rules from a YAML file.
func (r *Responder) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded responderRules
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(loaded.Rules) > 0 {
		r.rules = loaded.Rules
	}
	if len(loaded.GenericPrompts) > 0 {
		r.generic = loaded.GenericPrompts
	}
	return nil
}

// Reply returns the canned response for the input plus the standard action
// suggestions when the matched rule offers a way forward.
func (r *Responder) Reply(text string) (string, []domain.Suggestion) {
	lower := strings.ToLower(text)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				if rule.Suggest {
					return rule.Reply, mainMenuSuggestions()
				}
				return rule.Reply, nil
			}
		}
	}

	prompt := r.generic[r.rng.Intn(len(r.generic))]
	return prompt, mainMenuSuggestions()
}

func mainMenuSuggestions() []domain.Suggestion {
	return []domain.Suggestion{
		{Label: "Create a ticket", Action: domain.ActionCreateTicket},
		{Label: "Instant help", Action: domain.ActionInstantHelp},
		{Label: "Check ticket status", Action: domain.ActionCheckStatus},
	}
}
