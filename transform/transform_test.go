package transform

import (
	"bytes"
	"context"
	"testing"

	"github.com/miku/warctika/tikaclient"
	"github.com/miku/warctika/warcrecord"
)

type fakeExtractor struct {
	outcome tikaclient.Outcome
}

func (f *fakeExtractor) Extract(ctx context.Context, contentType string, body []byte) tikaclient.Outcome {
	return f.outcome
}

func responseRecord(id, uri, httpBody string) *warcrecord.Record {
	return &warcrecord.Record{
		Version: "WARC/1.0",
		Header: warcrecord.Header{
			{"WARC-Type", "response"},
			{"WARC-Record-ID", id},
			{"WARC-Target-URI", uri},
			{"Content-Type", "application/http; msgtype=response"},
		},
		Content: []byte(httpBody),
	}
}

// S1: 200 OK PDF response, extractor returns 200 with enough text -> conversion record.
func TestS1ConvertedPDF(t *testing.T) {
	rec := responseRecord("<urn:uuid:a>", "http://x/doc.pdf",
		"HTTP/1.1 200 OK\r\nContent-Type: application/pdf\r\n\r\n%PDF-body")
	tr := New(&fakeExtractor{outcome: tikaclient.Outcome{
		Converted: &tikaclient.Converted{ContentType: "text/plain", Body: bytes.Repeat([]byte("a"), 2048)},
	}})
	var stats Stats
	got := tr.transformOne(context.Background(), rec, &stats)
	if got.Header.Type() != "conversion" {
		t.Fatalf("WARC-Type = %q, want conversion", got.Header.Type())
	}
	if got.Header.Get("WARC-Refers-To") != "<urn:uuid:a>" {
		t.Errorf("WARC-Refers-To = %q", got.Header.Get("WARC-Refers-To"))
	}
	if got.Header.Get("WARC-Record-ID") == "<urn:uuid:a>" {
		t.Errorf("expected fresh record id")
	}
	if len(got.Content) != 2048 {
		t.Errorf("content length = %d, want 2048", len(got.Content))
	}
	if stats.RecordsConverted != 1 {
		t.Errorf("RecordsConverted = %d, want 1", stats.RecordsConverted)
	}
}

// S2: extractor returns too-short output -> original record kept unchanged.
func TestS2KeptShortOutput(t *testing.T) {
	rec := responseRecord("<urn:uuid:b>", "http://x/doc.pdf",
		"HTTP/1.1 200 OK\r\nContent-Type: application/pdf\r\n\r\n%PDF-body")
	tr := New(&fakeExtractor{outcome: tikaclient.Outcome{Kept: &tikaclient.Kept{Reason: "short"}}})
	var stats Stats
	got := tr.transformOne(context.Background(), rec, &stats)
	if got != rec {
		t.Fatalf("expected original record returned unchanged")
	}
	if stats.RecordsKept != 1 {
		t.Errorf("RecordsKept = %d, want 1", stats.RecordsKept)
	}
}

// S3: text/html is not in the MIME table, passthrough regardless of extractor.
func TestS3HTMLPassthrough(t *testing.T) {
	rec := responseRecord("<urn:uuid:c>", "http://x/page.html",
		"HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\n<html></html>")
	tr := New(&fakeExtractor{outcome: tikaclient.Outcome{
		Converted: &tikaclient.Converted{ContentType: "text/plain", Body: bytes.Repeat([]byte("a"), 2048)},
	}})
	var stats Stats
	got := tr.transformOne(context.Background(), rec, &stats)
	if got != rec {
		t.Fatalf("expected original HTML record returned unchanged")
	}
	if stats.RecordsPassed != 1 {
		t.Errorf("RecordsPassed = %d, want 1", stats.RecordsPassed)
	}
}

// S5: a segmented record is always passed through, regardless of type.
func TestS5SegmentedPassthrough(t *testing.T) {
	rec := &warcrecord.Record{
		Version: "WARC/1.0",
		Header: warcrecord.Header{
			{"WARC-Type", "response"},
			{"WARC-Record-ID", "<urn:uuid:d>"},
			{"WARC-Segment-Number", "1"},
			{"Content-Type", "application/pdf"},
		},
		Content: []byte("partial pdf bytes"),
	}
	tr := New(&fakeExtractor{outcome: tikaclient.Outcome{
		Converted: &tikaclient.Converted{ContentType: "text/plain", Body: bytes.Repeat([]byte("a"), 2048)},
	}})
	var stats Stats
	got := tr.transformOne(context.Background(), rec, &stats)
	if got != rec {
		t.Fatalf("expected segmented record returned unchanged")
	}
}

func TestAnnotateWarcinfoAppendsToExistingDescription(t *testing.T) {
	rec := &warcrecord.Record{
		Version: "WARC/1.0",
		Header:  warcrecord.Header{{"WARC-Type", "warcinfo"}},
		Content: []byte("software: test\r\ndescription: a crawl\r\nformat: WARC\r\n"),
	}
	got := AnnotateWarcinfo(rec)
	s := string(got.Content)
	if !bytes.Contains(got.Content, []byte("description: a crawl ")) {
		t.Errorf("description line not annotated: %q", s)
	}
}

func TestAnnotateWarcinfoPrependsWhenMissing(t *testing.T) {
	rec := &warcrecord.Record{
		Version: "WARC/1.0",
		Header:  warcrecord.Header{{"WARC-Type", "warcinfo"}},
		Content: []byte("software: test\r\n"),
	}
	got := AnnotateWarcinfo(rec)
	if !bytes.HasPrefix(got.Content, []byte("description: ")) {
		t.Errorf("expected prepended description line, got %q", got.Content)
	}
}
