package authcode

import (
	"bytes"
	"testing"
)

func TestSignerRoundTrip(t *testing.T) {
	s, err := newSigner([]byte("secret"), "state")
	if err != nil {
		t.Fatalf("newSigner: %v", err)
	}
	in := statePayload{State: "st", Verifier: "v", Nonce: "n", ExpiresAt: 123}
	value, err := s.seal(in)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	var out statePayload
	if err := s.open(value, &out); err != nil {
		t.Fatalf("open: %v", err)
	}
	if out != in {
		t.Errorf("open() = %+v, want %+v", out, in)
	}
}

func TestSignerRejects(t *testing.T) {
	s, _ := newSigner([]byte("secret"), "state")
	other, _ := newSigner([]byte("other-secret"), "state")
	good, _ := s.seal(statePayload{State: "st"})
	foreign, _ := other.seal(statePayload{State: "st"})

	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"no separator", "abc"},
		{"too many parts", good + ".extra"},
		{"bad payload encoding", "!!!." + "c2ln"},
		{"bad signature encoding", "e30.!!!"},
		{"signed with another secret", foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out statePayload
			if err := s.open(tt.value, &out); err == nil {
				t.Errorf("open(%q) succeeded", tt.value)
			}
		})
	}
}

func TestSignerKeysArePerPurpose(t *testing.T) {
	state, _ := newSigner([]byte("secret"), "state")
	session, _ := newSigner([]byte("secret"), "session")
	again, _ := newSigner([]byte("secret"), "state")

	if bytes.Equal(state.key, session.key) {
		t.Error("state and session keys are equal")
	}
	if !bytes.Equal(state.key, again.key) {
		t.Error("key derivation is not deterministic")
	}
}
