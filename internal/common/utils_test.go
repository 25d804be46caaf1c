package common

import "testing"

func TestHasAnyFold(t *testing.T) {
	tests := []struct {
		s       string
		phrases []string
		want    bool
	}{
		{"Invalid key", []string{"unauthorized", "invalid key"}, true},
		{"INVALID TOKEN supplied", []string{"invalid token"}, true},
		{"Unknown station", []string{"invalid key", "invalid token"}, false},
		{"anything", nil, false},
		{"anything", []string{""}, false},
	}
	for _, tt := range tests {
		if got := HasAnyFold(tt.s, tt.phrases...); got != tt.want {
			t.Errorf("HasAnyFold(%q, %q) = %v, want %v", tt.s, tt.phrases, got, tt.want)
		}
	}
}
