package meeting

import "testing"

func TestArbiter_FirstSenderWins(t *testing.T) {
	a := NewProviderArbiter("sess-1")

	if !a.Admit("conn-a") {
		t.Fatal("first sender must be admitted")
	}
	if a.Admit("conn-b") {
		t.Error("second sender must be discarded while provider is active")
	}
	if !a.Admit("conn-a") {
		t.Error("active provider must stay admitted")
	}
	if got := a.Active(); got != "conn-a" {
		t.Errorf("expected active conn-a, got %s", got)
	}
}

func TestArbiter_ReelectionOnRelease(t *testing.T) {
	a := NewProviderArbiter("sess-1")

	a.Admit("conn-a")
	a.Release("conn-b") // releasing a non-provider is a no-op
	if got := a.Active(); got != "conn-a" {
		t.Errorf("expected conn-a still active, got %s", got)
	}

	a.Release("conn-a")
	if got := a.Active(); got != "" {
		t.Errorf("expected empty slot after release, got %s", got)
	}
	if !a.Admit("conn-b") {
		t.Error("next sender must be admitted after the provider disconnects")
	}
}
