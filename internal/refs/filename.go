package refs

import (
	"fmt"

	"github.com/kennygrant/sanitize"
)

// Titles are advisory and may be arbitrarily long; keep entry names sane.
const maxBaseNameLen = 120

// OutputFileName derives a safe document file name from the reference title.
// Path-hostile characters are replaced and overlong titles truncated; an
// unusable title falls back to the reference ID.
func OutputFileName(r Reference) string {
	base := sanitize.BaseName(r.DisplayTitle())
	if base == "" || base == "-" {
		base = fmt.Sprintf("reference-%d", r.ID)
	}
	if len(base) > maxBaseNameLen {
		base = base[:maxBaseNameLen]
	}
	return base + documentExtension
}
