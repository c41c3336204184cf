package rules

import "testing"

func TestValidUID(t *testing.T) {
	cases := []struct {
		uid  string
		want bool
	}{
		{"12345678", true},
		{"  12345678  ", true},
		{"AB12cd34", true},
		{"123456", true},
		{"12345", false},
		{"123456789012345678901", false},
		{"1234-5678", false},
		{"1234 5678", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := ValidUID(tc.uid, 6, 20); got != tc.want {
			t.Fatalf("ValidUID(%q) = %v, want %v", tc.uid, got, tc.want)
		}
	}
}

func TestValidUIDDefaultsBounds(t *testing.T) {
	if !ValidUID("123456", 0, 0) {
		t.Fatalf("expected default bounds to accept a 6-char uid")
	}
	if ValidUID("12345", 0, 0) {
		t.Fatalf("expected default bounds to reject a 5-char uid")
	}
}
