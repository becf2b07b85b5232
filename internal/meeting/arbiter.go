package meeting

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/BillStark001/meetscript/internal/observability/logging"
)

// ProviderArbiter elects exactly one active upload connection per session.
// The first connection to send a data frame while the slot is empty becomes
// the provider; frames from any other connection are silently discarded
// until the provider disconnects and the slot clears. No re-election happens
// except on disconnect.
type ProviderArbiter struct {
	mu     sync.Mutex
	active string
	log    zerolog.Logger
}

// NewProviderArbiter creates an arbiter with an empty provider slot.
func NewProviderArbiter(session string) *ProviderArbiter {
	return &ProviderArbiter{log: logging.WithSession("arbiter", session)}
}

// Admit reports whether audio from the given connection identity is accepted.
// An empty slot is claimed by the caller.
func (a *ProviderArbiter) Admit(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == "" {
		a.active = id
		a.log.Info().Str("provider", id).Msg("Provider elected")
		return true
	}
	return a.active == id
}

// Release clears the provider slot if held by the given connection.
func (a *ProviderArbiter) Release(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == id {
		a.active = ""
		a.log.Info().Str("provider", id).Msg("Provider released")
	}
}

// Active returns the current provider identity, empty if none.
func (a *ProviderArbiter) Active() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}
