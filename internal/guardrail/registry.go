package guardrail

import (
	"ask-ai/internal/config"
	"ask-ai/internal/models"
)

// GuardRail is the fixed prompt and generation parameters of a request type.
type GuardRail struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	Seed        int

	// history policy
	UseEmptyHistory   bool
	SkipHistoryUpdate bool
}

// Registry maps request types to guard rails. It is read-only after construction.
type Registry struct {
	rails map[models.RequestType]GuardRail
}

// NewRegistry returns the built-in rails merged with the configured overrides.
func NewRegistry(overrides map[string]config.GuardRailConfig) *Registry {
	rails := make(map[models.RequestType]GuardRail, len(defaultRails))
	for k, v := range defaultRails {
		rails[k] = v
	}

	for name, o := range overrides {
		key := models.RequestType(name)
		g, ok := rails[key]
		if !ok {
			g = defaultRails[models.Default]
		}
		if o.Prompt != "" {
			g.Prompt = o.Prompt
		}
		if o.MaxTokens > 0 {
			g.MaxTokens = o.MaxTokens
		}
		if o.Temperature != nil {
			g.Temperature = *o.Temperature
		}
		if o.Seed != nil {
			g.Seed = *o.Seed
		}
		if o.UseEmptyHistory != nil {
			g.UseEmptyHistory = *o.UseEmptyHistory
		}
		if o.SkipHistoryUpdate != nil {
			g.SkipHistoryUpdate = *o.SkipHistoryUpdate
		}
		rails[key] = g
	}
	return &Registry{rails: rails}
}

// Lookup never fails: unknown request types resolve to the default rail.
func (r *Registry) Lookup(t models.RequestType) GuardRail {
	if g, ok := r.rails[t]; ok {
		return g
	}
	return r.rails[models.Default]
}

// Registered reports whether t has its own rail.
func (r *Registry) Registered(t models.RequestType) bool {
	_, ok := r.rails[t]
	return ok && t != models.Default
}
