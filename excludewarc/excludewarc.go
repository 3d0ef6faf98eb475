// Package excludewarc implements the exclusion filter: re-emit a WARC
// archive with records removed by header/regex predicates, cascading the
// exclusion to derivative records via WARC-Concurrent-To.
package excludewarc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/miku/warctika/httpmessage"
	"github.com/miku/warctika/warcrecord"
)

// Mode selects whether all predicates must fire, or any single one suffices.
type Mode int

const (
	ModeAll Mode = iota
	ModeAny
)

// Predicate pairs a field name with a compiled regex tested against every
// header value for that field (or a synthetic XHTTP-* field).
type Predicate struct {
	Field   string
	Pattern *regexp.Regexp
}

const (
	fieldHTTPResponseCode = "XHTTP-Response-Code"
	fieldHTTPContentType  = "XHTTP-Content-Type"
	fieldHTTPBody         = "XHTTP-Body"
)

func isSyntheticHTTPField(field string) bool {
	switch field {
	case fieldHTTPResponseCode, fieldHTTPContentType, fieldHTTPBody:
		return true
	}
	return false
}

// Filter holds the full set of predicates and evaluates them per record.
type Filter struct {
	Predicates []Predicate
	Mode       Mode

	// SuppressHTTP disables the synthetic XHTTP-* fields entirely: a
	// predicate naming one never matches and the response body is never
	// parsed to evaluate it. Set by the CLI's -e flag.
	SuppressHTTP bool

	needsHTTP bool
}

// NewFilter builds a Filter, precomputing whether any predicate targets a
// synthetic HTTP field so response bodies are only parsed when necessary.
// When suppressHTTP is true, synthetic XHTTP-* predicates are accepted but
// never match, and response bodies are never parsed on their account.
func NewFilter(predicates []Predicate, mode Mode, suppressHTTP bool) *Filter {
	f := &Filter{Predicates: predicates, Mode: mode, SuppressHTTP: suppressHTTP}
	if f.SuppressHTTP {
		return f
	}
	for _, p := range predicates {
		if isSyntheticHTTPField(p.Field) {
			f.needsHTTP = true
			break
		}
	}
	return f
}

// Stats reports how many records were read and excluded.
type Stats struct {
	RecordsRead     int
	RecordsExcluded int
}

// FilterFile reads records from in and writes the surviving records to out.
func (f *Filter) FilterFile(in *warcrecord.Reader, out *warcrecord.Writer) (Stats, error) {
	stats := Stats{}
	excluded := make(map[string]struct{})

	for {
		rec, err := in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read record: %w", err)
		}
		stats.RecordsRead++

		if f.cascades(rec, excluded) || f.matches(rec) {
			stats.RecordsExcluded++
			excluded[rec.Header.Get("WARC-Record-ID")] = struct{}{}
			continue
		}
		if err := out.WriteRecord(rec); err != nil {
			return stats, fmt.Errorf("write record: %w", err)
		}
	}
	return stats, nil
}

// cascades reports whether rec names an already-excluded record as a
// concurrent record, short-circuiting predicate evaluation entirely.
func (f *Filter) cascades(rec *warcrecord.Record, excluded map[string]struct{}) bool {
	for _, id := range rec.Header.Values("WARC-Concurrent-To") {
		if _, ok := excluded[id]; ok {
			return true
		}
	}
	return false
}

// matches evaluates the predicate set against rec per the configured mode.
func (f *Filter) matches(rec *warcrecord.Record) bool {
	if len(f.Predicates) == 0 {
		return false
	}
	var httpMsg *httpFields
	if f.needsHTTP && rec.Header.Type() == warcrecord.TypeResponse {
		httpMsg = parseHTTPFields(rec)
	}

	hits := 0
	for _, p := range f.Predicates {
		if f.fieldMatches(rec, p, httpMsg) {
			hits++
			if f.Mode == ModeAny {
				return true
			}
		}
	}
	if f.Mode == ModeAll {
		return hits == len(f.Predicates)
	}
	return false
}

type httpFields struct {
	responseCode string
	contentType  string
	body         string
}

func parseHTTPFields(rec *warcrecord.Record) *httpFields {
	msg, _, err := httpmessage.Parse(rec.Content)
	if err != nil {
		return &httpFields{}
	}
	return &httpFields{
		responseCode: fmt.Sprintf("%d", msg.StatusCode),
		contentType:  msg.ContentType,
		body:         string(msg.Body),
	}
}

func (f *Filter) fieldMatches(rec *warcrecord.Record, p Predicate, httpMsg *httpFields) bool {
	switch p.Field {
	case fieldHTTPResponseCode:
		return !f.SuppressHTTP && httpMsg != nil && p.Pattern.MatchString(httpMsg.responseCode)
	case fieldHTTPContentType:
		return !f.SuppressHTTP && httpMsg != nil && p.Pattern.MatchString(httpMsg.contentType)
	case fieldHTTPBody:
		return !f.SuppressHTTP && httpMsg != nil && p.Pattern.MatchString(httpMsg.body)
	default:
		for _, v := range rec.Header.Values(p.Field) {
			if p.Pattern.MatchString(v) {
				return true
			}
		}
		return false
	}
}

// ParsePredicate parses a single "field/regexp" or "XFile/path" spec, with
// cycle-safe recursion for XFile inclusion.
func ParsePredicate(spec string, visited map[string]bool) ([]Predicate, error) {
	field, pattern, ok := strings.Cut(spec, "/")
	if !ok {
		return nil, fmt.Errorf("malformed predicate %q: want field/regexp", spec)
	}
	if field == "XFile" {
		return loadPatternFile(pattern, visited)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad regexp in predicate %q: %w", spec, err)
	}
	return []Predicate{{Field: field, Pattern: re}}, nil
}

func loadPatternFile(path string, visited map[string]bool) ([]Predicate, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if visited == nil {
		visited = make(map[string]bool)
	}
	if visited[abs] {
		return nil, fmt.Errorf("cyclic XFile inclusion at %s", path)
	}
	visited[abs] = true
	// Only the files currently being expanded count as ancestors.
	defer delete(visited, abs)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file %s: %w", path, err)
	}
	var out []Predicate
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ps, err := ParsePredicate(line, visited)
		if err != nil {
			return nil, err
		}
		out = append(out, ps...)
	}
	return out, nil
}
