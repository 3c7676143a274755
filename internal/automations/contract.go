package automations

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gorm.io/datatypes"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/ledger"
)

// ProcessInput is everything an automation may look at when deciding
// what to emit. State is re-read by the scheduler immediately before
// the call, never a stale snapshot, so idempotency checks against it
// are trustworthy for the duration of the seed lock.
type ProcessInput struct {
	Seed  *types.Seed
	State *ledger.SeedState
}

// ProposedTransaction is an automation's output. Automations never
// write the ledger themselves; the scheduler appends proposals through
// the ledger service, stamping its own automation_id, so the
// single-writer-per-seed discipline holds.
type ProposedTransaction struct {
	Type    types.TransactionType
	Payload datatypes.JSON
}

// Automation is in-process behavior bound to a registry row by name.
//
// Process may call external AI services and fail transiently; it must
// be safely retryable. The contract for that is checking the current
// projection before emitting (skip a tag already present, skip a
// category already set) rather than assuming exactly-once execution.
type Automation interface {
	Name() string
	Process(ctx context.Context, in ProcessInput) ([]ProposedTransaction, error)
	// CalculatePressure scores how much a structural change matters to
	// this automation for the given seed, in [0,100].
	CalculatePressure(state *ledger.SeedState, change *types.StructuralChange) int
}

// Registry holds the automations registered at process start. Lookup is
// by name, matching the database registry rows.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Automation
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]Automation{}}
}

func (r *Registry) Register(a Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := a.Name()
	if name == "" {
		return fmt.Errorf("automation has empty name")
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("automation %q registered twice", name)
	}
	r.byName[name] = a
	return nil
}

func (r *Registry) Get(name string) (Automation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

// All returns registered automations in stable name order.
func (r *Registry) All() []Automation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Automation, 0, len(r.byName))
	for _, a := range r.byName {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
