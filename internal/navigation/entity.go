package navigation

import "context"

// Outcome describes what activating an entity did.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCopied
	OutcomeLaunched
	OutcomeExecuted
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCopied:
		return "copied"
	case OutcomeLaunched:
		return "launched"
	case OutcomeExecuted:
		return "executed"
	case OutcomeRejected:
		return "rejected"
	default:
		return "none"
	}
}

// PinOutcome is the result of the pin toggle intent. A full pin quota is an
// outcome, not an error.
type PinOutcome int

const (
	PinOutcomeNone PinOutcome = iota
	PinOutcomePinned
	PinOutcomeUnpinned
	PinOutcomeQuotaExceeded
)

func (o PinOutcome) String() string {
	switch o {
	case PinOutcomePinned:
		return "pinned"
	case PinOutcomeUnpinned:
		return "unpinned"
	case PinOutcomeQuotaExceeded:
		return "quota exceeded"
	default:
		return "none"
	}
}

// Entity is anything the controller can select and activate.
type Entity interface {
	// Key identifies the entity across refreshes.
	Key() string
	Activate(ctx context.Context) (Outcome, error)
}

// Source supplies the current grouping.
type Source[E Entity] interface {
	Groups() Groups[E]
}

// Mutator carries out the clipboard-only intents.
type Mutator[E Entity] interface {
	Delete(ctx context.Context, e E) error
	TogglePin(ctx context.Context, e E) (PinOutcome, error)
	ClearAll(ctx context.Context) error
}
