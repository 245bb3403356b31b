package model

import "testing"

func TestNormalizeGroupName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jiří Novák", "jiri novak"},
		{"  JIŘÍ   NOVÁK  ", "jiri novak"},
		{"François", "francois"},
		{"plain name", "plain name"},
		{"", ""},
	}

	for _, tt := range tests {
		got := NormalizeGroupName(tt.input)
		if got != tt.expected {
			t.Errorf("NormalizeGroupName(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
