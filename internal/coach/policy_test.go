package coach

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func assistant(showed bool) Turn {
	return Turn{Role: RoleAssistant, Text: "ok", ShowedRecommendation: showed}
}

func user() Turn {
	return Turn{Role: RoleUser, Text: "hola"}
}

func TestPolicyAllow(t *testing.T) {
	p := RecommendationPolicy{CooldownTurns: 2}

	tests := []struct {
		name    string
		history []Turn
		want    bool
	}{
		{"empty history", nil, true},
		{"shown in last assistant turn", []Turn{user(), assistant(true), user()}, false},
		{"shown two assistant turns ago", []Turn{user(), assistant(true), user(), assistant(false), user()}, false},
		{"shown three assistant turns ago", []Turn{user(), assistant(true), user(), assistant(false), user(), assistant(false), user()}, true},
		{"never shown", []Turn{user(), assistant(false), user(), assistant(false)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allow(tt.history))
		})
	}
}

func TestPolicyZeroCooldownPassesThrough(t *testing.T) {
	p := RecommendationPolicy{}
	rec := &ProductRecommendation{ProductName: "Kumis Alpina"}

	got, suppressed := p.Apply(rec, []Turn{assistant(true)})
	assert.Same(t, rec, got)
	assert.False(t, suppressed)
}

func TestPolicyApply(t *testing.T) {
	p := RecommendationPolicy{CooldownTurns: 2}
	rec := &ProductRecommendation{ProductName: "Kumis Alpina"}

	got, suppressed := p.Apply(rec, []Turn{assistant(true), user()})
	assert.Nil(t, got)
	assert.True(t, suppressed)

	got, suppressed = p.Apply(nil, []Turn{assistant(true)})
	assert.Nil(t, got)
	assert.False(t, suppressed)

	got, suppressed = p.Apply(rec, []Turn{assistant(false)})
	assert.Same(t, rec, got)
	assert.False(t, suppressed)
}
