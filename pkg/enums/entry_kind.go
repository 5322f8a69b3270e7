package enums

import "fmt"

// EntryKind maps to the entry_kind_enum enum in Postgres.
type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"
	EntryKindCredit EntryKind = "CREDIT"
	EntryKindFee    EntryKind = "FEE"
)

var validEntryKinds = []EntryKind{
	EntryKindDebit,
	EntryKindCredit,
	EntryKindFee,
}

// String implements fmt.Stringer.
func (k EntryKind) String() string {
	return string(k)
}

// IsValid reports whether the value matches the canonical entry kind enum.
func (k EntryKind) IsValid() bool {
	for _, candidate := range validEntryKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEntryKind converts raw input into an EntryKind.
func ParseEntryKind(value string) (EntryKind, error) {
	for _, candidate := range validEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry kind %q", value)
}
