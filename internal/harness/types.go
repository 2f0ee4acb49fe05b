package harness

import "github.com/roach88/hiscore/internal/model"

// TraceEvent records one executed flow step and the ledger events it emitted.
type TraceEvent struct {
	Step    int            `json:"step"`
	Action  string         `json:"action"`
	Player  string         `json:"player,omitempty"`
	Args    string         `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Details map[string]any `json:"details,omitempty"`
	Events  []model.Event  `json:"events,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one entry per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// aliases maps addresses back to scenario names for rendering.
	aliases map[model.Address]string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		aliases: make(map[model.Address]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// alias returns the scenario name for addr, or its hex form.
func (r *Result) alias(addr model.Address) string {
	if name, ok := r.aliases[addr]; ok {
		return name
	}
	return addr.Hex()
}
