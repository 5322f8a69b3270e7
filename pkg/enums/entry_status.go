package enums

import "fmt"

// EntryStatus tracks a ledger entry through its lifecycle.
type EntryStatus string

const (
	EntryStatusPending EntryStatus = "PENDING"
	EntryStatusSuccess EntryStatus = "SUCCESS"
	EntryStatusFailed  EntryStatus = "FAILED"
)

var validEntryStatuses = []EntryStatus{
	EntryStatusPending,
	EntryStatusSuccess,
	EntryStatusFailed,
}

// String implements fmt.Stringer.
func (s EntryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s EntryStatus) IsValid() bool {
	for _, candidate := range validEntryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the entry lifecycle.
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusSuccess || s == EntryStatusFailed
}

// ParseEntryStatus converts raw input into an EntryStatus.
func ParseEntryStatus(value string) (EntryStatus, error) {
	for _, candidate := range validEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry status %q", value)
}
