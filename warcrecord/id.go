package warcrecord

import "github.com/google/uuid"

// NewRecordID returns a fresh WARC-Record-ID in the canonical
// "<urn:uuid:...>" form. The spec allows a time-based generator; a random
// v4 UUID is simpler to produce correctly and is equally collision-resistant.
func NewRecordID() string {
	return "<urn:uuid:" + uuid.New().String() + ">"
}
