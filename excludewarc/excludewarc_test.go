package excludewarc

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/miku/warctika/warcrecord"
	"github.com/stretchr/testify/require"
)

func writeRecords(t *testing.T, recs []*warcrecord.Record) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := warcrecord.NewWriter(&buf, false)
	for _, r := range recs {
		require.NoError(t, w.WriteRecord(r))
	}
	return &buf
}

func readAll(t *testing.T, buf *bytes.Buffer) []*warcrecord.Record {
	t.Helper()
	r := warcrecord.NewReader(buf, warcrecord.GzipPlain)
	var out []*warcrecord.Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

// S4: warcinfo + response(PDF) + metadata(concurrent-to response).
// Predicate WARC-Target-URI/^http://x/ matches the response; the metadata
// record must drop via cascade.
func TestS4ExclusionCascade(t *testing.T) {
	recs := []*warcrecord.Record{
		{Version: "WARC/1.0", Header: warcrecord.Header{
			{"WARC-Type", "warcinfo"}, {"WARC-Record-ID", "<urn:uuid:info>"},
		}, Content: []byte("software: test\r\n")},
		{Version: "WARC/1.0", Header: warcrecord.Header{
			{"WARC-Type", "response"}, {"WARC-Record-ID", "<urn:uuid:resp>"},
			{"WARC-Target-URI", "http://x/doc.pdf"},
		}, Content: []byte("HTTP/1.1 200 OK\r\n\r\n%PDF")},
		{Version: "WARC/1.0", Header: warcrecord.Header{
			{"WARC-Type", "metadata"}, {"WARC-Record-ID", "<urn:uuid:meta>"},
			{"WARC-Concurrent-To", "<urn:uuid:resp>"},
		}, Content: []byte("fetch took 100ms")},
	}
	in := writeRecords(t, recs)
	pred := Predicate{Field: "WARC-Target-URI", Pattern: regexp.MustCompile(`^http://x/`)}
	f := NewFilter([]Predicate{pred}, ModeAll, false)

	var outBuf bytes.Buffer
	w := warcrecord.NewWriter(&outBuf, false)
	stats, err := f.FilterFile(warcrecord.NewReader(in, warcrecord.GzipPlain), w)
	require.NoError(t, err)
	require.Equal(t, 2, stats.RecordsExcluded)

	got := readAll(t, &outBuf)
	require.Len(t, got, 1)
	require.Equal(t, "warcinfo", got[0].Header.Type())
}

func TestCascadeClosureInvariant(t *testing.T) {
	recs := []*warcrecord.Record{
		{Version: "WARC/1.0", Header: warcrecord.Header{
			{"WARC-Type", "response"}, {"WARC-Record-ID", "<urn:uuid:r>"},
			{"WARC-Target-URI", "http://drop.me/x"},
		}, Content: []byte("HTTP/1.1 200 OK\r\n\r\nbody")},
		{Version: "WARC/1.0", Header: warcrecord.Header{
			{"WARC-Type", "request"}, {"WARC-Record-ID", "<urn:uuid:req>"},
			{"WARC-Concurrent-To", "<urn:uuid:r>"},
		}, Content: []byte("GET / HTTP/1.1\r\n\r\n")},
	}
	in := writeRecords(t, recs)
	pred := Predicate{Field: "WARC-Target-URI", Pattern: regexp.MustCompile(`drop\.me`)}
	f := NewFilter([]Predicate{pred}, ModeAll, false)
	var outBuf bytes.Buffer
	_, err := f.FilterFile(warcrecord.NewReader(in, warcrecord.GzipPlain), warcrecord.NewWriter(&outBuf, false))
	require.NoError(t, err)

	got := readAll(t, &outBuf)
	for _, r := range got {
		for _, id := range r.Header.Values("WARC-Concurrent-To") {
			require.NotEqual(t, "<urn:uuid:r>", id, "excluded id must not survive in any emitted record")
		}
	}
}

func TestParsePredicateXFileCycleDetected(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("XFile/"+b+"\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("XFile/"+a+"\n"), 0644))

	_, err := ParsePredicate("XFile/"+a, nil)
	require.Error(t, err)
}

func TestModeAnyVsAll(t *testing.T) {
	rec := &warcrecord.Record{
		Version: "WARC/1.0",
		Header: warcrecord.Header{
			{"WARC-Type", "resource"},
			{"WARC-Record-ID", "<urn:uuid:z>"},
			{"WARC-Target-URI", "http://a/b"},
		},
		Content: []byte("x"),
	}
	p1 := Predicate{Field: "WARC-Target-URI", Pattern: regexp.MustCompile(`^http://a/`)}
	p2 := Predicate{Field: "WARC-Target-URI", Pattern: regexp.MustCompile(`nomatch`)}

	fAll := NewFilter([]Predicate{p1, p2}, ModeAll, false)
	require.False(t, fAll.matches(rec))

	fAny := NewFilter([]Predicate{p1, p2}, ModeAny, false)
	require.True(t, fAny.matches(rec))
}

func TestSuppressHTTPNeverMatchesSyntheticFields(t *testing.T) {
	rec := &warcrecord.Record{
		Version: "WARC/1.0",
		Header: warcrecord.Header{
			{"WARC-Type", "response"},
			{"WARC-Record-ID", "<urn:uuid:z>"},
		},
		Content: []byte("HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\nbody"),
	}
	pred := Predicate{Field: fieldHTTPContentType, Pattern: regexp.MustCompile(`html`)}

	f := NewFilter([]Predicate{pred}, ModeAll, false)
	require.True(t, f.matches(rec), "without suppression the synthetic field should match")

	fs := NewFilter([]Predicate{pred}, ModeAll, true)
	require.False(t, fs.matches(rec), "SuppressHTTP must make synthetic XHTTP-* predicates never match")
}
