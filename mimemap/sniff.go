package mimemap

import "github.com/gabriel-vasile/mimetype"

// sniff detects a media type from content bytes, used only when a record
// carries no declared Content-Type to classify against.
func sniff(body []byte) string {
	return mimetype.Detect(body).String()
}
