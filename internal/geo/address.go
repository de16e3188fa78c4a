package geo

import "strings"

// PreprocessAddress reduces a comma-separated address to its town, taken as
// the second-to-last segment. Addresses with fewer than two segments are
// returned unchanged.
//
//	"12 Main St, Yaba, Lagos, Nigeria" -> "Lagos"
func PreprocessAddress(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return address
	}
	return strings.TrimSpace(parts[len(parts)-2])
}
