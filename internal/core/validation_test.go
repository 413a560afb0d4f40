// internal/core/validation_test.go
package core

import (
	"strings"
	"testing"

	"github.com/pharmap/pharmap-backend/internal/domain"
)

func TestIsValidUsername(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    bool
		comment string
	}{
		{"valid simple", "alice", true, ""},
		{"valid with numbers", "user_123", true, ""},
		{"valid uppercase", "ALICE", true, ""},
		{"valid underscore start", "_alice", true, ""},
		{"valid short (3 chars)", "abc", true, ""},
		{"valid long (64 chars)", strings.Repeat("a", 64), true, ""},
		{"invalid empty", "", false, "empty string"},
		{"invalid too short", "ab", false, "below 3 chars"},
		{"invalid space", "my user", false, "contains space"},
		{"invalid hyphen", "my-user", false, "contains hyphen"},
		{"invalid special char", "user$", false, "contains dollar sign"},
		{"invalid unicode", "usér", false, "non-ASCII letter"},
		{"invalid too long", strings.Repeat("a", 65), false, "exceeds 64 chars"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidUsername(tc.input)
			if got != tc.want {
				t.Errorf("IsValidUsername(%q) = %v; want %v. %s", tc.input, got, tc.want, tc.comment)
			}
		})
	}
}

func TestIsValidSearchName(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    bool
		comment string
	}{
		{"valid simple", "Downtown sweep", true, ""},
		{"valid unicode", "Αθήνα κέντρο", true, ""},
		{"valid punctuation", "area #3 (north)", true, ""},
		{"valid long (255 chars)", strings.Repeat("a", 255), true, ""},
		{"invalid empty", "", false, "empty string"},
		{"invalid blank", "   ", false, "whitespace only"},
		{"invalid newline", "line1\nline2", false, "contains control char"},
		{"invalid tab", "a\tb", false, "contains control char"},
		{"invalid too long", strings.Repeat("a", 256), false, "exceeds 255 chars"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidSearchName(tc.input)
			if got != tc.want {
				t.Errorf("IsValidSearchName(%q) = %v; want %v. %s", tc.input, got, tc.want, tc.comment)
			}
		})
	}
}

func TestSearchPresets(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		wantStep   float64
		wantRadius int
		wantOk     bool
	}{
		{"quick", SearchTypeQuick, 0.01, 1000, true},
		{"advanced", SearchTypeAdvanced, 0.005, 500, true},
		{"unknown", "precise", 0, 0, false},
		{"empty", "", 0, 0, false},
		{"wrong case", "Quick", 0, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			step, radius, ok := SearchPresets(tc.input)
			if ok != tc.wantOk {
				t.Errorf("SearchPresets(%q): ok = %v; want %v", tc.input, ok, tc.wantOk)
			}
			if step != tc.wantStep || radius != tc.wantRadius {
				t.Errorf("SearchPresets(%q) = (%v, %v); want (%v, %v)", tc.input, step, radius, tc.wantStep, tc.wantRadius)
			}
		})
	}
}

func TestIsValidIP(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid IPv4", "192.168.1.10", true},
		{"valid IPv6", "2001:db8::1", true},
		{"valid loopback", "127.0.0.1", true},
		{"invalid with port", "192.168.1.10:8080", false},
		{"invalid hostname", "localhost", false},
		{"invalid empty", "", false},
		{"invalid octet", "256.1.1.1", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidIP(tc.input)
			if got != tc.want {
				t.Errorf("IsValidIP(%q) = %v; want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestValidBounds(t *testing.T) {
	testCases := []struct {
		name    string
		input   domain.Bounds
		want    bool
		comment string
	}{
		{"valid small box", domain.Bounds{LatMin: 37.97, LatMax: 37.99, LonMin: 23.72, LonMax: 23.74}, true, ""},
		{"valid crossing equator", domain.Bounds{LatMin: -0.01, LatMax: 0.01, LonMin: 10, LonMax: 10.02}, true, ""},
		{"invalid lat order", domain.Bounds{LatMin: 38, LatMax: 37, LonMin: 23, LonMax: 24}, false, "lat_min >= lat_max"},
		{"invalid lon order", domain.Bounds{LatMin: 37, LatMax: 38, LonMin: 24, LonMax: 23}, false, "lon_min >= lon_max"},
		{"invalid zero box", domain.Bounds{LatMin: 37, LatMax: 37, LonMin: 23, LonMax: 23}, false, "degenerate box"},
		{"invalid lat range", domain.Bounds{LatMin: -91, LatMax: 0, LonMin: 0, LonMax: 1}, false, "below -90"},
		{"invalid lon range", domain.Bounds{LatMin: 0, LatMax: 1, LonMin: 179, LonMax: 181}, false, "above 180"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidBounds(tc.input)
			if got != tc.want {
				t.Errorf("ValidBounds(%+v) = %v; want %v. %s", tc.input, got, tc.want, tc.comment)
			}
		})
	}
}
