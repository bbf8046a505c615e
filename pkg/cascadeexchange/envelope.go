// Package cascadeexchange provides the JSON wire envelope used to hand a
// built cascade to a verifier over whatever transport the caller chooses.
// It is a pure serialization adapter: it does not open a socket or speak
// any protocol itself.
package cascadeexchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flhps/crset-cascade-go/pkg/cascade"
)

// EnvelopeVersion is bumped whenever the Envelope shape changes in a way
// that breaks older decoders.
const EnvelopeVersion = 1

// Envelope is the JSON-serializable form of a single labeled cascade.
type Envelope struct {
	Timestamp time.Time `json:"timestamp"`
	Version   int       `json:"version"`
	Label     string    `json:"label"`
	WireHex   string    `json:"wire_hex"`
}

// Encode wraps c's current serialized form in an Envelope tagged with
// label and the current time.
func Encode(label string, c *cascade.Cascade) *Envelope {
	return &Envelope{
		Timestamp: time.Now(),
		Version:   EnvelopeVersion,
		Label:     label,
		WireHex:   c.ToHex(),
	}
}

// Decode reconstructs the Cascade carried by e.
func (e *Envelope) Decode() (*cascade.Cascade, error) {
	if e.Version != EnvelopeVersion {
		return nil, fmt.Errorf("cascadeexchange: unsupported envelope version %d", e.Version)
	}
	return cascade.FromHex(e.WireHex)
}

// Marshal serializes e to JSON.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEnvelope parses a JSON-encoded Envelope.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("cascadeexchange: malformed envelope: %w", err)
	}
	return &e, nil
}
