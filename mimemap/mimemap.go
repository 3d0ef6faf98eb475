// Package mimemap canonicalises a Content-Type to one of the narrow media
// types the extraction service understands, via a fixed ordered regex
// table. The table is the exact mimemappings list from the WARC transformer
// this repository descends from: order matters, and only the first match
// wins.
package mimemap

import (
	"regexp"
	"strings"
)

type entry struct {
	pattern    *regexp.Regexp
	source     string // raw regex source, used to build the mangling notice
	canonical  string // "" means passthrough: return the input type verbatim
}

// table is deliberately a package-level var, not a func-local literal,
// so Descriptions() can walk the same ordered list the classifier uses.
var table = []entry{
	{regexp.MustCompile(`(?i)^application/pdf$`), `^application/pdf$`, "application/pdf"},
	{regexp.MustCompile(`(?i)^application/(x-)?(vnd\.?)?(ms-?)?(excel)|(xls)`), `^application/(x-)?(vnd\.?)?(ms-?)?(excel)|(xls)`, "application/vnd.ms-excel"},
	{regexp.MustCompile(`(?i)^application/(x-)?(vnd\.?)?(ms-?)?(powerpoint)|(pps)|(ppt)`), `^application/(x-)?(vnd\.?)?(ms-?)?(powerpoint)|(pps)|(ppt)`, "application/vnd.ms-powerpoint"},
	{regexp.MustCompile(`(?i)^application/(x-)?(vnd\.?)?(ms-?)?(word$)|(doc$)`), `^application/(x-)?(vnd\.?)?(ms-?)?(word$)|(doc$)`, "application/msword"},
	{regexp.MustCompile(`(?i)^application/vnd\.openxmlformats-officedocument`), `^application/vnd\.openxmlformats-officedocument`, ""},
	{regexp.MustCompile(`(?i)^((text)|(application))/((rtf)|(richtext))$`), `^((text)|(application))/((rtf)|(richtext))$`, "text/rtf"},
	{regexp.MustCompile(`(?i)^application/vnd\.oasis\.opendocument`), `^application/vnd\.oasis\.opendocument`, ""},
	{regexp.MustCompile(`(?i)^acrobat$`), `^acrobat$`, "application/pdf"},
}

// Classify returns the canonical media type for contentType, and whether any
// table entry matched at all. A "" contentType always returns ok=false: the
// caller must preserve such records untouched.
func Classify(contentType string) (canonical string, ok bool) {
	if contentType == "" {
		return "", false
	}
	for _, e := range table {
		if e.pattern.MatchString(contentType) {
			if e.canonical == "" {
				return contentType, true
			}
			return e.canonical, true
		}
	}
	return "", false
}

// ClassifyBytes falls back to content sniffing when contentType is absent,
// which only arises for resource records that carry no HTTP wrapper.
func ClassifyBytes(contentType string, body []byte) (string, bool) {
	if contentType != "" {
		return Classify(contentType)
	}
	if len(body) == 0 {
		return "", false
	}
	sniffed := sniff(body)
	return Classify(sniffed)
}

// Descriptions returns the raw regex sources in table order, used to build
// the warcinfo mangling notice.
func Descriptions() []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = e.source
	}
	return out
}

// noticeLeadIn is the human-readable sentence prefixed to the regex list,
// carried over from the original project's warcinfo description mangling.
const noticeLeadIn = "Items collected with content types matching the following " +
	"regular expressions have been processed by Apache Tika to attempt to " +
	"produce plain text formats for storage. These processed items have " +
	"been stored as WARC conversion records: "

// Notice builds the mangling-notice sentence documenting which content-type
// families are replaced by conversion records.
func Notice() string {
	return noticeLeadIn + strings.Join(Descriptions(), "; ") + "."
}
