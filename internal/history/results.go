package history

import (
	"fmt"

	"quickclip/pkg/types"
)

// AppendOutcome is the expected result of Append.
type AppendOutcome int

const (
	// AppendIgnored means the payload was empty.
	AppendIgnored AppendOutcome = iota
	// AppendDuplicate means an entry with the same fingerprint already
	// exists. It is not moved and its use count is not touched.
	AppendDuplicate
	// AppendCreated means a new entry was prepended to the unpinned list.
	AppendCreated
)

func (o AppendOutcome) String() string {
	switch o {
	case AppendDuplicate:
		return "duplicate"
	case AppendCreated:
		return "created"
	default:
		return "ignored"
	}
}

// AppendResult reports what Append did.
type AppendResult struct {
	Outcome AppendOutcome
	// Entry is the created entry, or the existing one for a duplicate.
	Entry types.Entry
	// Evicted lists entries dropped by the history cap.
	Evicted []types.Entry
}

// PinResult is the expected result of Pin and TogglePin.
type PinResult int

const (
	PinNotFound PinResult = iota
	PinPinned
	PinAlreadyPinned
	PinQuotaExceeded
	PinUnpinned
)

func (r PinResult) String() string {
	switch r {
	case PinPinned:
		return "pinned"
	case PinAlreadyPinned:
		return "already pinned"
	case PinQuotaExceeded:
		return "quota exceeded"
	case PinUnpinned:
		return "unpinned"
	default:
		return "not found"
	}
}

// DeleteResult reports what Delete removed.
type DeleteResult struct {
	Found bool
	// WasActive is true when the entry was the content most recently
	// written to or observed on the system clipboard.
	WasActive bool
	Entry     types.Entry
}

// PersistError is returned when a mutation succeeded in memory but the
// snapshot could not be written.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("history %s: persist failed: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
