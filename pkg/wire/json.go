package wire

import (
	"bytes"
	"encoding/json"
)

// MaxManifestSize bounds a deployed contract's manifest, per §6.4.
const MaxManifestSize = 64 * 1024

// CanonicalJSON marshals v using Go's stable map-key-sorted encoding (the
// standard library already sorts map keys and preserves struct field order,
// which is sufficient for the deterministic manifest encoding §6.4 requires)
// and compacts the result (no incidental whitespace differences between
// encoder runs).
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
