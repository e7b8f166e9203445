package audit

import (
	"testing"
)

func TestCanonicalizeSortsKeysRecursively(t *testing.T) {
	a := map[string]interface{}{
		"b": map[string]interface{}{"z": 1, "a": 2},
		"a": "x",
	}
	b := map[string]interface{}{
		"a": "x",
		"b": map[string]interface{}{"a": 2, "z": 1},
	}

	ca, err := Canonicalize(a, CanonicalOptions{})
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	cb, err := Canonicalize(b, CanonicalOptions{})
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if string(ca) != string(cb) {
		t.Errorf("key order changed canonical form:\n%s\n%s", ca, cb)
	}
}

func TestCanonicalizeRoundsFloats(t *testing.T) {
	// Values differing only beyond the fixed precision hash identically.
	a := map[string]interface{}{"cost": 0.1234567891}
	b := map[string]interface{}{"cost": 0.1234567892}

	ha, err := Hash(a, CanonicalOptions{})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	hb, err := Hash(b, CanonicalOptions{})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if ha != hb {
		t.Error("sub-precision float noise changed the hash")
	}

	// Differences within precision still matter.
	c := map[string]interface{}{"cost": 0.124}
	hc, err := Hash(c, CanonicalOptions{})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if ha == hc {
		t.Error("distinct values hashed identically")
	}
}

func TestCanonicalizePreservesIntegers(t *testing.T) {
	a, err := Canonicalize(map[string]interface{}{"n": 100}, CanonicalOptions{})
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if string(a) != `{"n":100}` {
		t.Errorf("integer mangled: %s", a)
	}
}

func TestCanonicalizeExcludesTimestamps(t *testing.T) {
	a := map[string]interface{}{
		"outcome":    "approved",
		"created_at": "2026-01-01T10:00:00Z",
		"timestamp":  "2026-01-01T10:00:00Z",
		"nested": map[string]interface{}{
			"resolved_at":     "2026-01-02T10:00:00Z",
			"evaluation_time": 125,
			"value":           1,
		},
	}
	b := map[string]interface{}{
		"outcome":    "approved",
		"created_at": "1999-12-31T23:59:59Z",
		"nested": map[string]interface{}{
			"value": 1,
		},
	}

	ha, err := Hash(a, CanonicalOptions{ExcludeTimestamps: true})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	hb, err := Hash(b, CanonicalOptions{ExcludeTimestamps: true})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if ha != hb {
		t.Error("timestamp-bearing fields leaked into the hash")
	}

	// Without exclusion the timestamps do count.
	ha2, _ := Hash(a, CanonicalOptions{})
	hb2, _ := Hash(b, CanonicalOptions{})
	if ha2 == hb2 {
		t.Error("expected different hashes when timestamps are included")
	}
}

func TestCanonicalizeRejectsUnserializable(t *testing.T) {
	if _, err := Canonicalize(map[string]interface{}{"ch": make(chan int)}, CanonicalOptions{}); err == nil {
		t.Fatal("expected error for unserializable value")
	}
}
