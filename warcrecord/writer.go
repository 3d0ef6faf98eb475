package warcrecord

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Writer serialises WARC records to a sink, regenerating Content-Length from
// the actual content block on every write and never trusting a header value
// carried over from a prior read. When gzip is requested, each record is
// written as its own, independently-decompressible gzip member so the output
// concatenates as a valid multi-member archive.
type Writer struct {
	w        io.Writer
	gzip     bool
	gzWriter *gzip.Writer
}

// NewWriter constructs a Writer over sink. When gzipPerRecord is true, every
// WriteRecord call opens, writes, and closes its own gzip member.
func NewWriter(sink io.Writer, gzipPerRecord bool) *Writer {
	return &Writer{w: sink, gzip: gzipPerRecord}
}

// WriteRecord serialises one record, regenerating its Content-Length.
func (w *Writer) WriteRecord(r *Record) error {
	hdr := r.Header.Clone()
	hdr.Set("Content-Length", fmt.Sprintf("%d", len(r.Content)))

	var dst io.Writer = w.w
	var gz *gzip.Writer
	if w.gzip {
		gz = gzip.NewWriter(w.w)
		dst = gz
	}

	version := r.Version
	if version == "" {
		version = "WARC/1.0"
	}
	if _, err := fmt.Fprintf(dst, "%s\r\n", version); err != nil {
		return err
	}
	for _, f := range hdr {
		if _, err := fmt.Fprintf(dst, "%s: %s\r\n", f.Name, f.Value); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(dst, "\r\n"); err != nil {
		return err
	}
	if _, err := dst.Write(r.Content); err != nil {
		return err
	}
	if _, err := io.WriteString(dst, "\r\n\r\n"); err != nil {
		return err
	}
	if gz != nil {
		// Close this member now so the next WriteRecord starts a fresh one;
		// this is what makes the output a valid concatenation of members.
		if err := gz.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; Writer holds no state beyond the sink, which callers own.
func (w *Writer) Close() error { return nil }
