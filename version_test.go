package main

import "testing"

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		version, commit, want string
	}{
		{"v0.3.0", "0123456789abcdef", "v0.3.0"},
		{"dev", "0123456789abcdef", "dev-0123456"},
		{"", "abc", "dev-abc"},
		{"dev", "unknown", "dev"},
		{" dev ", "  ", "dev"},
	}
	for _, tt := range tests {
		got := formatVersion(tt.version, tt.commit)
		if got != tt.want {
			t.Errorf("formatVersion(%q, %q) = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}
