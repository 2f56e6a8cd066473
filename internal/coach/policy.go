package coach

// RecommendationPolicy suppresses a product recommendation when one was
// already shown in any of the last CooldownTurns assistant turns. A zero
// cooldown lets every recommendation through.
type RecommendationPolicy struct {
	CooldownTurns int
}

// Allow reports whether a new recommendation may be shown given history
// ordered oldest first.
func (p RecommendationPolicy) Allow(history []Turn) bool {
	if p.CooldownTurns <= 0 {
		return true
	}
	seen := 0
	for i := len(history) - 1; i >= 0 && seen < p.CooldownTurns; i-- {
		if history[i].Role != RoleAssistant {
			continue
		}
		if history[i].ShowedRecommendation {
			return false
		}
		seen++
	}
	return true
}

// Apply returns rec, or nil with suppressed set when the cooldown is active.
func (p RecommendationPolicy) Apply(rec *ProductRecommendation, history []Turn) (out *ProductRecommendation, suppressed bool) {
	if rec == nil {
		return nil, false
	}
	if !p.Allow(history) {
		return nil, true
	}
	return rec, false
}
