package util

import (
	"strings"
	"testing"
)

func TestHashUserKey(t *testing.T) {
	guest := HashUserKey("guest:g1")
	if guest != HashUserKey("guest:g1") {
		t.Fatalf("expected stable hash")
	}
	if guest == HashUserKey("guest:g2") {
		t.Fatalf("expected distinct callers to get distinct keys")
	}
	if len(guest) != 64 || strings.Contains(guest, "g1") {
		t.Fatalf("unexpected key %q", guest)
	}
}
