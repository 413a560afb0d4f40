// internal/core/validation.go
package core

import (
	"net"
	"strings"
	"unicode/utf8"

	"github.com/pharmap/pharmap-backend/internal/domain"
)

// Search type presets. Quick searches cover a coarser grid with a wider
// per-tile radius; advanced searches use the fine grid.
const (
	SearchTypeQuick    = "quick"
	SearchTypeAdvanced = "advanced"

	QuickStep      = 0.01
	QuickRadius    = 1000
	AdvancedStep   = 0.005
	AdvancedRadius = 500
)

// SearchPresets maps a search type to its tiling parameters.
func SearchPresets(searchType string) (step float64, radius int, ok bool) {
	switch searchType {
	case SearchTypeQuick:
		return QuickStep, QuickRadius, true
	case SearchTypeAdvanced:
		return AdvancedStep, AdvancedRadius, true
	default:
		return 0, 0, false
	}
}

// IsValidSearchName checks a user-facing search name: non-blank, at most
// 255 characters, no control characters.
func IsValidSearchName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || utf8.RuneCountInString(name) > 255 {
		return false
	}
	for _, r := range name {
		if r < 0x20 {
			return false
		}
	}
	return true
}

// IsValidUsername restricts usernames to the identifier alphabet the
// storage key expects (alphanumeric plus underscore, 3-64 chars).
func IsValidUsername(name string) bool {
	if len(name) < 3 || len(name) > 64 {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// IsValidIP reports whether the string is a parseable IPv4/IPv6 address.
func IsValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// ValidBounds checks ordering and coordinate ranges of a bounding box.
func ValidBounds(b domain.Bounds) bool {
	if b.LatMin >= b.LatMax || b.LonMin >= b.LonMax {
		return false
	}
	if b.LatMin < -90 || b.LatMax > 90 || b.LonMin < -180 || b.LonMax > 180 {
		return false
	}
	return true
}
