package deal

import (
	"encoding/json"
	"fmt"
	"io"
)

// DecodeBytes parses a deal document, fills its defaults and runs the full
// validation battery. It is the construction path for external documents: no
// partially validated deal escapes it.
func DecodeBytes(data []byte) (*Deal, error) {
	var d Deal
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode deal document: %w", err)
	}
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Decode is DecodeBytes over a reader.
func Decode(r io.Reader) (*Deal, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read deal document: %w", err)
	}
	return DecodeBytes(data)
}
