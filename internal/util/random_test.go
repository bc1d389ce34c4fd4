package util

import (
	"strings"
	"testing"
)

func TestGenerateRandomID(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		hexLength  int
		wantLength int
	}{
		{"guest format", GuestIDPrefix, 32, 38},
		{"odd length", "ws_", 7, 10},
		{"no prefix", "", 16, 16},
		{"zero length", "x_", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := GenerateRandomID(tt.prefix, tt.hexLength)
			if !strings.HasPrefix(id, tt.prefix) {
				t.Errorf("GenerateRandomID() = %q, want prefix %q", id, tt.prefix)
			}
			if len(id) != tt.wantLength {
				t.Errorf("GenerateRandomID() length = %d, want %d", len(id), tt.wantLength)
			}
			for _, c := range strings.TrimPrefix(id, tt.prefix) {
				if !strings.ContainsRune("0123456789abcdef", c) {
					t.Errorf("GenerateRandomID() = %q contains non-hex %q", id, c)
				}
			}
		})
	}
}

func TestGenerateRandomIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateGuestID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestIsGuestID(t *testing.T) {
	if !IsGuestID(GenerateGuestID()) {
		t.Error("generated guest id should validate")
	}
	for _, bad := range []string{"", "guest_", "guest_XYZ", "anon_0123456789abcdef0123456789abcdef", "guest_0123456789abcdef0123456789abcdef0"} {
		if IsGuestID(bad) {
			t.Errorf("IsGuestID(%q) = true, want false", bad)
		}
	}
}
