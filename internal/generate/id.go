package generate

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewAlertID builds a process-unique alert id: millisecond timestamp
// plus six hex characters of crypto randomness. The timestamp prefix
// keeps ids sortable by creation time.
func NewAlertID(at time.Time) string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		// Fall back to nanosecond resolution rather than aborting an
		// alert write.
		return fmt.Sprintf("a-%d", at.UnixNano())
	}
	return fmt.Sprintf("a-%d-%s", at.UnixMilli(), hex.EncodeToString(b))
}
