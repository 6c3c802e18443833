package wire

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/chazu/sophia/vm"
)

// Bundle carries the units of one compilation.
type Bundle struct {
	Version int               `cbor:"v"`
	Session string            `cbor:"session"`
	Entry   string            `cbor:"entry"`
	Units   map[string]string `cbor:"units"` // class name -> unit text
}

// NewBundle collects the text of units.
func NewBundle(session uuid.UUID, entry string, units []*vm.Unit) *Bundle {
	b := &Bundle{
		Version: Version,
		Session: session.String(),
		Entry:   entry,
		Units:   make(map[string]string, len(units)),
	}
	for _, u := range units {
		b.Units[u.Name] = u.String()
	}
	return b
}

// Classes returns the class names of the bundle in sorted order.
func (b *Bundle) Classes() []string {
	names := make([]string, 0, len(b.Units))
	for name := range b.Units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load parses every unit of the bundle into m.
func (b *Bundle) Load(m *vm.Machine) error {
	units := make([]*vm.Unit, 0, len(b.Units))
	for _, name := range b.Classes() {
		u, err := vm.ParseUnit(b.Units[name])
		if err != nil {
			return fmt.Errorf("wire: bundle unit %s: %w", name, err)
		}
		units = append(units, u)
	}
	return m.Load(units...)
}

// MarshalBundle serializes a Bundle to CBOR bytes.
func MarshalBundle(b *Bundle) ([]byte, error) {
	return cborEncMode.Marshal(b)
}

// UnmarshalBundle deserializes a Bundle from CBOR bytes.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("wire: unmarshal bundle: %w", err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("wire: bundle version %d, want %d", b.Version, Version)
	}
	if _, err := uuid.Parse(b.Session); err != nil {
		return nil, fmt.Errorf("wire: bundle session: %w", err)
	}
	return &b, nil
}
