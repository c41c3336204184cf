package rules

import "testing"

func TestVerificationCallbackRoundTrip(t *testing.T) {
	data := VerificationCallback(VerbApprove, 42)
	if data != "verif:approve:42" {
		t.Fatalf("unexpected callback data: %s", data)
	}

	verb, id, ok := ParseVerificationCallback(data)
	if !ok {
		t.Fatalf("expected token to parse")
	}
	if verb != VerbApprove || id != 42 {
		t.Fatalf("unexpected parse result: verb=%s id=%d", verb, id)
	}
}

func TestParseVerificationCallbackRejectsForeignTokens(t *testing.T) {
	cases := []string{
		"",
		CallbackActivation,
		"verif:approve",
		"verif:approve:abc",
		"verif:approve:0",
		"verif:ban:7",
		"other:approve:7",
	}

	for _, data := range cases {
		if _, _, ok := ParseVerificationCallback(data); ok {
			t.Fatalf("expected %q to be rejected", data)
		}
	}
}
