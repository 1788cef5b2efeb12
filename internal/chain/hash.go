package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Entry is a single log record: an arbitrary key-value mapping. Entries are
// treated as immutable once hashed.
type Entry = map[string]any

// CanonicalJSON renders v with object keys sorted lexicographically at every
// nesting level. encoding/json already sorts map keys, so canonicalization
// reduces to forcing v through a map representation first.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// HashValue returns the hex SHA-256 of the canonical JSON form of v.
// The empty string is returned only when v cannot be marshaled, which for
// chain-owned data never happens.
func HashValue(v any) string {
	b, err := CanonicalJSON(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// normalizeEntry forces an entry through a JSON round trip so that its value
// types match what a snapshot import would produce. Without this, an entry
// holding an int would hash differently before and after export/import.
func normalizeEntry(e Entry) (Entry, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var out Entry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
