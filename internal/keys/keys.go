package keys

import (
	"fmt"
	"strings"
)

// sanitize lowercases and hyphenates a value for use in an object key.
func sanitize(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
}

// Snapshot returns the canonical object key for an organization's gym list
// snapshot.
func Snapshot(organizationID string) string {
	return fmt.Sprintf("snapshots/%s.json", sanitize(organizationID))
}

// Export returns the canonical object key for an organization's rendered map
// export.
func Export(organizationID string) string {
	return fmt.Sprintf("exports/%s.geojson", sanitize(organizationID))
}
