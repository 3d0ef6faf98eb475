// Package transform implements the record transformer (classify each WARC
// record, maybe replace it with a conversion record) and the warcinfo
// annotator that documents the transformation in the archive's description
// field.
package transform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/miku/warctika/httpmessage"
	"github.com/miku/warctika/mimemap"
	"github.com/miku/warctika/tikaclient"
	"github.com/miku/warctika/warcrecord"
)

// Extractor is the seam transform calls through for text extraction,
// satisfied by *tikaclient.Client in production and a fake in tests.
type Extractor interface {
	Extract(ctx context.Context, contentType string, body []byte) tikaclient.Outcome
}

// Stats accumulates per-file outcome counts, mirroring the original
// project's per-file Tika status code report.
type Stats struct {
	RecordsRead      int
	RecordsConverted int
	RecordsKept      int
	RecordsPassed    int
	Codes            map[int]int
}

// Transformer runs the C5 state machine over one WARC stream at a time.
type Transformer struct {
	Extract Extractor
}

// New constructs a Transformer backed by the given extractor.
func New(x Extractor) *Transformer {
	return &Transformer{Extract: x}
}

// TransformFile reads records from in and writes the transformed stream to
// out, one record at a time, never reordering and never aborting the file
// because of a single bad record (panics are recovered and the original
// record is emitted unchanged).
func (t *Transformer) TransformFile(ctx context.Context, in *warcrecord.Reader, out *warcrecord.Writer) (Stats, error) {
	stats := Stats{Codes: map[int]int{}}
	for {
		rec, err := in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read record: %w", err)
		}
		stats.RecordsRead++
		result := t.transformOne(ctx, rec, &stats)
		if err := out.WriteRecord(result); err != nil {
			return stats, fmt.Errorf("write record: %w", err)
		}
	}
	if c, ok := t.Extract.(*tikaclient.Client); ok {
		for code, n := range c.Codes() {
			stats.Codes[code] += n
		}
		c.Reset()
	}
	return stats, nil
}

// transformOne applies the state machine to a single record. Any panic is
// recovered and the original record emitted unchanged, per the "never abort
// the file for one bad record" policy.
func (t *Transformer) transformOne(ctx context.Context, rec *warcrecord.Record, stats *Stats) (result *warcrecord.Record) {
	result = rec
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic while transforming record, keeping original",
				"record_id", rec.Header.Get("WARC-Record-ID"), "panic", r)
			result = rec
			stats.RecordsPassed++
		}
	}()

	switch rec.Header.Type() {
	case warcrecord.TypeWarcinfo:
		return AnnotateWarcinfo(rec)
	case warcrecord.TypeRequest, warcrecord.TypeMetadata, warcrecord.TypeRevisit,
		warcrecord.TypeContinuation, warcrecord.TypeConversion:
		stats.RecordsPassed++
		return rec
	}
	if rec.Header.IsSegmented() {
		stats.RecordsPassed++
		return rec
	}

	var contentType string
	var body []byte
	switch rec.Header.Type() {
	case warcrecord.TypeResponse:
		uri := rec.Header.Get("WARC-Target-URI")
		if !strings.HasPrefix(uri, "http") {
			stats.RecordsPassed++
			return rec
		}
		msg, diags, err := httpmessage.Parse(rec.Content)
		if err != nil {
			slog.Warn("failed to re-parse http response, keeping original", "err", err, "uri", uri)
			stats.RecordsPassed++
			return rec
		}
		for _, d := range diags {
			slog.Debug("http re-parse diagnostic", "uri", uri, "msg", d.Message)
		}
		if msg.StatusCode != 200 || msg.ContentType == "" {
			stats.RecordsPassed++
			return rec
		}
		contentType, body = msg.ContentType, msg.Body
	case warcrecord.TypeResource:
		contentType, body = rec.ContentType(), rec.Content
	default:
		stats.RecordsPassed++
		return rec
	}

	canonical, ok := mimemap.ClassifyBytes(contentType, body)
	if !ok {
		stats.RecordsPassed++
		return rec
	}

	outcome := t.Extract.Extract(ctx, canonical, body)
	switch {
	case outcome.Converted != nil:
		stats.RecordsConverted++
		return buildConversionRecord(rec, outcome.Converted.ContentType, outcome.Converted.Body)
	default:
		stats.RecordsKept++
		return rec
	}
}

// buildConversionRecord applies the exact header-rewrite rules: strip
// concurrency/digest/length/type headers, set WARC-Refers-To, set
// WARC-Type: conversion, issue a fresh WARC-Record-ID.
func buildConversionRecord(src *warcrecord.Record, contentType string, body []byte) *warcrecord.Record {
	hdr := src.Header.Clone()
	hdr.Del("WARC-Concurrent-To")
	hdr.Del("WARC-Block-Digest")
	hdr.Del("WARC-Payload-Digest")
	hdr.Del("Content-Length")
	hdr.Del("Content-Type")
	hdr.Set("WARC-Refers-To", src.Header.Get("WARC-Record-ID"))
	hdr.Set("WARC-Type", warcrecord.TypeConversion)
	hdr.Set("WARC-Record-ID", warcrecord.NewRecordID())
	hdr.Add("Content-Type", contentType)
	return &warcrecord.Record{Version: src.Version, Header: hdr, Content: body}
}

var descriptionLineRe = regexp.MustCompile(`(?m)^description: [^\r\n]*`)

// AnnotateWarcinfo returns a copy of a warcinfo record whose block documents
// the transformation: the mangling notice is appended to an existing
// description line, or a new one is prepended. The input record is not
// modified.
func AnnotateWarcinfo(rec *warcrecord.Record) *warcrecord.Record {
	notice := mimemap.Notice()
	block := string(rec.Content)
	var newBlock string
	if loc := descriptionLineRe.FindStringIndex(block); loc != nil {
		newBlock = block[:loc[1]] + " " + notice + block[loc[1]:]
	} else {
		newBlock = "description: " + notice + "\r\n" + block
	}
	hdr := rec.Header.Clone()
	return &warcrecord.Record{Version: rec.Version, Header: hdr, Content: []byte(newBlock)}
}
