package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// GenesisHash is the previous-hash sentinel for the first record of a
// tenant's chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// FloatPrecision is the number of decimal places floating-point values
// are rounded to during canonicalization, so that representation noise
// can never change a hash.
const FloatPrecision = 9

// CanonicalOptions controls canonical serialization.
type CanonicalOptions struct {
	// ExcludeTimestamps strips all timestamp-bearing fields from the
	// canonical form. Used by decision traces so two logically
	// identical computations hash identically regardless of wall-clock
	// time. A key is timestamp-bearing when it is exactly "timestamp"
	// or "at", or ends in "_at" or "_time".
	ExcludeTimestamps bool
}

// Canonicalize produces a deterministic JSON serialization of v:
// object keys recursively sorted, floating-point values rounded to
// FloatPrecision decimal places, and optionally all timestamp-bearing
// fields removed. Values that cannot be serialized to JSON are
// rejected.
func Canonicalize(v interface{}, opts CanonicalOptions) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: unserializable value: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonicalize: decode: %w", err)
	}

	tree = normalize(tree, opts)

	// encoding/json marshals map keys in sorted order, which gives the
	// recursive key ordering for free once the tree is maps and slices.
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: encode: %w", err)
	}
	return out, nil
}

// Hash returns the hex-encoded SHA-256 of the canonical form of v.
func Hash(v interface{}, opts CanonicalOptions) (string, error) {
	canonical, err := Canonicalize(v, opts)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// normalize walks the decoded JSON tree, rounding numbers and dropping
// excluded keys.
func normalize(v interface{}, opts CanonicalOptions) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			if opts.ExcludeTimestamps && timestampKey(k) {
				continue
			}
			out[k] = normalize(child, opts)
		}
		return out

	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = normalize(child, opts)
		}
		return out

	case json.Number:
		// Integers pass through untouched; only fractional values are
		// subject to precision rounding.
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return roundFloat(f)

	default:
		return v
	}
}

// timestampKey reports whether a field name carries a timestamp.
func timestampKey(key string) bool {
	if key == "timestamp" || key == "at" {
		return true
	}
	return strings.HasSuffix(key, "_at") || strings.HasSuffix(key, "_time")
}

// roundFloat rounds to FloatPrecision decimal places.
func roundFloat(f float64) float64 {
	shift := math.Pow10(FloatPrecision)
	return math.Round(f*shift) / shift
}
