package user

import (
	"time"

	"nutricoach/internal/coach"
	"nutricoach/internal/database"
	"nutricoach/internal/ledger"
	"nutricoach/internal/media"
	"nutricoach/internal/utility"
)

const (
	defaultHistoryPage = 50
	maxHistoryPage     = 100
)

// Deps wires the collaborators of the user-facing handlers.
type Deps struct {
	Store  database.Store
	Agent  *coach.Agent
	Ledger *ledger.Aggregator
	Media  media.Store
	Hub    *utility.Hub

	HistoryLimit  int
	CooldownTurns int
}

// Service serves the chat, history, summary and profile endpoints.
type Service struct {
	store  database.Store
	agent  *coach.Agent
	ledger *ledger.Aggregator
	media  media.Store
	hub    *utility.Hub

	historyLimit  int
	cooldownTurns int
	now           func() time.Time
}

func NewService(d Deps) *Service {
	if d.Media == nil {
		d.Media = media.InlineStore{}
	}
	return &Service{
		store:         d.Store,
		agent:         d.Agent,
		ledger:        d.Ledger,
		media:         d.Media,
		hub:           d.Hub,
		historyLimit:  d.HistoryLimit,
		cooldownTurns: d.CooldownTurns,
		now:           time.Now,
	}
}

// historyFetchSize covers both the context window and the recommendation cooldown.
func (s *Service) historyFetchSize() int {
	return max(s.historyLimit, 2*s.cooldownTurns)
}
