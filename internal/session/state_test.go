package session

import "testing"

func TestCanTransitionHappyPath(t *testing.T) {
	path := []State{
		StateDisconnected, StateConnecting, StateHandshaking,
		StateStreaming, StatePaused, StateStreaming, StateDisconnecting, StateDisconnected,
	}
	for i := 0; i < len(path)-1; i++ {
		if !canTransition(path[i], path[i+1]) {
			t.Fatalf("expected %s -> %s to be valid", path[i], path[i+1])
		}
	}
}

func TestCanTransitionAnyStateToError(t *testing.T) {
	for _, s := range []State{StateConnecting, StateHandshaking, StateStreaming, StatePaused, StateDisconnecting} {
		if !canTransition(s, StateError) {
			t.Errorf("expected %s -> error to be valid", s)
		}
	}
	if canTransition(StateDisconnected, StateError) {
		t.Error("disconnected -> error should not be a valid transition")
	}
}

func TestCanTransitionErrorToDisconnected(t *testing.T) {
	if !canTransition(StateError, StateDisconnected) {
		t.Error("expected error -> disconnected to be valid")
	}
}

func TestCanTransitionRejectsSkippingStates(t *testing.T) {
	cases := []struct{ from, to State }{
		{StateDisconnected, StateHandshaking},
		{StateDisconnected, StateStreaming},
		{StateConnecting, StateStreaming},
		{StatePaused, StateDisconnected},
		{StateStreaming, StateConnecting},
	}
	for _, c := range cases {
		if canTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be rejected", c.from, c.to)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateStreaming.String() != "streaming" {
		t.Errorf("unexpected String(): %q", StateStreaming.String())
	}
}
