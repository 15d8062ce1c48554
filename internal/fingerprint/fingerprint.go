// Package fingerprint computes the content-addressed key the Cache Store
// indexes by: a SHA-256 of the canonical JSON encoding of
// (task_kind, definition_subset, resolved_input), per spec.md §3. No pack
// example ships a canonical-JSON library (the teacher's own checksum task,
// internal/tasks/checksum/checksum.go, hashes raw bytes with crypto/sha256
// directly), so this is a deliberate, documented stdlib concern.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Fingerprint is the hex-encoded SHA-256 digest identifying one deterministic
// task invocation.
type Fingerprint string

// DefinitionSubset is the part of a task definition that affects
// determinism: everything except metadata and the `then` flow directive,
// which do not change what the task computes.
type DefinitionSubset map[string]interface{}

// Compute derives a Fingerprint for one task invocation.
func Compute(taskKind string, subset DefinitionSubset, resolvedInput interface{}) (Fingerprint, error) {
	canonical, err := Canonicalize(map[string]interface{}{
		"kind":  taskKind,
		"def":   subset,
		"input": resolvedInput,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return Fingerprint(hex.EncodeToString(sum[:])), nil
}

// Canonicalize produces a byte-identical JSON encoding for semantically
// equal values: object keys are sorted, and there is no insignificant
// whitespace. This is the basis for testable property 1 (fingerprint
// determinism).
func Canonicalize(v interface{}) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalize round-trips v through encoding/json to collapse it to the
// map[string]interface{}/[]interface{}/scalar shape, then rebuilds every map
// and slice with sortValue. The sorted key order of the output comes from
// encoding/json, which marshals map[string]interface{} keys in sorted order.
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}
	return sortValue(decoded), nil
}

func sortValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]interface{}, len(t))
		for _, k := range keys {
			out[k] = sortValue(t[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sortValue(e)
		}
		return out
	default:
		return v
	}
}
