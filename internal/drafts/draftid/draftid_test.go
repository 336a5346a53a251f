package draftid

import (
	"strings"
	"testing"
)

func TestResolveSaveMethod_UnsavedIdentifiers(t *testing.T) {
	cases := []string{"", "new", "   ", "\t\n"}
	for _, id := range cases {
		if got := ResolveSaveMethod(id); got != MethodCreate {
			t.Fatalf("ResolveSaveMethod(%q) = %v, want MethodCreate", id, got)
		}
	}
}

func TestResolveSaveMethod_PersistedIdentifiers(t *testing.T) {
	cases := []string{
		"507f1f77bcf86cd799439011",
		"draft-1714000000000-123456",
		"abc",
		"temp-1",
	}
	for _, id := range cases {
		if got := ResolveSaveMethod(id); got != MethodUpdate {
			t.Fatalf("ResolveSaveMethod(%q) = %v, want MethodUpdate", id, got)
		}
	}
}

func TestResolveSaveMethod_IsTotal(t *testing.T) {
	// Any input resolves to exactly one of the two methods.
	for _, id := range []string{"", "new", "NEW", " new ", "garbage!!!", "\x00"} {
		got := ResolveSaveMethod(id)
		if got != MethodCreate && got != MethodUpdate {
			t.Fatalf("ResolveSaveMethod(%q) returned unexpected method %v", id, got)
		}
	}
}

func TestIsBackendGeneratedID(t *testing.T) {
	if IsBackendGeneratedID("") {
		t.Fatal("empty id must not count as backend generated")
	}
	if IsBackendGeneratedID("temp-123") {
		t.Fatal("temp- prefixed id must not count as backend generated")
	}
	if !IsBackendGeneratedID("507f1f77bcf86cd799439011") {
		t.Fatal("hex id should count as backend generated")
	}
	if !IsBackendGeneratedID("draft-1-1") {
		t.Fatal("placeholder ids are backend-agnostic but not temp; gate allows them")
	}
}

func TestIsRemoteID(t *testing.T) {
	if !IsRemoteID("507f1f77bcf86cd799439011") {
		t.Fatal("24-hex id should be a remote id")
	}
	for _, id := range []string{"", "new", "507F1F77BCF86CD799439011", "507f1f77bcf86cd79943901", "507f1f77bcf86cd7994390111", "draft-1-1"} {
		if IsRemoteID(id) {
			t.Fatalf("IsRemoteID(%q) = true, want false", id)
		}
	}
}

func TestNewPlaceholderID(t *testing.T) {
	id := NewPlaceholderID()
	if !strings.HasPrefix(id, PlaceholderPrefix) {
		t.Fatalf("placeholder %q missing prefix", id)
	}
	if !IsPlaceholderID(id) {
		t.Fatalf("placeholder %q not recognized", id)
	}
	if IsRemoteID(id) {
		t.Fatalf("placeholder %q must not look like a remote id", id)
	}
}

func TestCanTransition_Monotonic(t *testing.T) {
	placeholder := NewPlaceholderID()
	remote := "507f1f77bcf86cd799439011"

	if !CanTransition("", placeholder) {
		t.Fatal("unsaved -> placeholder must be allowed")
	}
	if !CanTransition("new", placeholder) {
		t.Fatal("sentinel -> placeholder must be allowed")
	}
	if !CanTransition(placeholder, remote) {
		t.Fatal("placeholder -> remote must be allowed")
	}
	if !CanTransition("", remote) {
		t.Fatal("unsaved -> remote must be allowed")
	}
	if CanTransition(remote, placeholder) {
		t.Fatal("remote -> placeholder must be rejected")
	}
	if CanTransition(remote, "") {
		t.Fatal("remote -> unsaved must be rejected")
	}
	if CanTransition(remote, "aaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Fatal("remote -> different remote must be rejected")
	}
	if !CanTransition(remote, remote) {
		t.Fatal("idempotent remote assignment must be allowed")
	}
}
