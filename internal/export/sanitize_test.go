package export

import "testing"

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"users", "users"},
		{"Users", "users"},
		{"user-profiles", "user_profiles"},
		{"Café Orders", "cafe_orders"},
		{"über", "uber"},
		{"2024logs", "_2024logs"},
		{"", "unnamed"},
		{"a1_b2", "a1_b2"},
		{"日本", "__"},
	}
	for _, tt := range tests {
		if got := SanitizeIdentifier(tt.in); got != tt.want {
			t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
