package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MachineSnapshot is one entry of a step's denormalized machine view. The
// field set and key names are part of the external contract; reporting
// clients consume this shape verbatim.
type MachineSnapshot struct {
	MachineID   uint             `json:"machineId"`
	Unit        string           `json:"unit"`
	MachineCode string           `json:"machineCode"`
	MachineType string           `json:"machineType"`
	Status      AssignmentStatus `json:"status"`
}

// MachineDetails stores the snapshot as raw JSON bytes so that rebuilding it
// from the same ledger state is byte-identical, which makes drift comparison
// and idempotency checks exact.
type MachineDetails []byte

// Scan implements sql.Scanner.
func (m *MachineDetails) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		buf := make([]byte, len(v))
		copy(buf, v)
		*m = buf
		return nil
	case string:
		*m = []byte(v)
		return nil
	default:
		return fmt.Errorf("cannot scan type %T into MachineDetails", value)
	}
}

// Value implements driver.Valuer.
func (m MachineDetails) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return []byte(m), nil
}

// MarshalJSON returns the stored JSON as-is.
func (m MachineDetails) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("[]"), nil
	}
	return m, nil
}

// UnmarshalJSON stores the raw JSON.
func (m *MachineDetails) UnmarshalJSON(data []byte) error {
	if data == nil {
		*m = nil
		return nil
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	*m = buf
	return nil
}

// Entries decodes the snapshot into its typed form. An empty or absent
// snapshot decodes to an empty slice.
func (m MachineDetails) Entries() ([]MachineSnapshot, error) {
	if len(m) == 0 {
		return []MachineSnapshot{}, nil
	}
	var entries []MachineSnapshot
	if err := json.Unmarshal(m, &entries); err != nil {
		return nil, fmt.Errorf("decode machine details: %w", err)
	}
	if entries == nil {
		entries = []MachineSnapshot{}
	}
	return entries, nil
}

// EncodeMachineDetails serializes snapshot entries in a stable, canonical
// form. Entries must already be in ledger order.
func EncodeMachineDetails(entries []MachineSnapshot) (MachineDetails, error) {
	if entries == nil {
		entries = []MachineSnapshot{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode machine details: %w", err)
	}
	return MachineDetails(data), nil
}
