// Package warcrecord implements a self-contained WARC 1.0 reader and writer:
// framed records over plain or per-record-gzip streams, with ordered headers
// and an in-memory content block. It owns its own framing rather than relying
// on any upstream WARC library, since that framing is the core of this
// repository.
package warcrecord

import (
	"fmt"
	"strings"
)

// Well-known WARC-Type values.
const (
	TypeWarcinfo    = "warcinfo"
	TypeRequest     = "request"
	TypeResponse    = "response"
	TypeResource    = "resource"
	TypeMetadata    = "metadata"
	TypeRevisit     = "revisit"
	TypeContinuation = "continuation"
	TypeConversion  = "conversion"
)

// Field is a single WARC header field. Order and duplicates are preserved;
// a record may legitimately carry more than one WARC-Concurrent-To field.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered list of WARC fields, looked up case-insensitively.
type Header []Field

// Get returns the first value for name, case-insensitively, or "".
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for name, case-insensitively, in order.
func (h Header) Values(name string) []string {
	var vs []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			vs = append(vs, f.Value)
		}
	}
	return vs
}

// Set replaces all existing values for name with a single value, or appends
// if name is not present.
func (h *Header) Set(name, value string) {
	for i, f := range *h {
		if strings.EqualFold(f.Name, name) {
			(*h)[i].Value = value
			// Drop any further duplicates so Set always yields exactly one.
			h.Del(name)
			*h = append(*h, Field{Name: f.Name, Value: value})
			return
		}
	}
	*h = append(*h, Field{Name: name, Value: value})
}

// Add appends an additional field without touching existing ones.
func (h *Header) Add(name, value string) {
	*h = append(*h, Field{Name: name, Value: value})
}

// Del removes every field with the given name, case-insensitively.
func (h *Header) Del(name string) {
	out := (*h)[:0]
	for _, f := range *h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	*h = out
}

// Clone returns a deep copy of the header list.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	copy(out, h)
	return out
}

// Type is a convenience accessor for the WARC-Type field.
func (h Header) Type() string { return h.Get("WARC-Type") }

// IsSegmented reports whether the record carries WARC-Segment-Number,
// meaning it must never be transformed.
func (h Header) IsSegmented() bool { return h.Get("WARC-Segment-Number") != "" }

// Record is a materialised WARC record: the version line, the ordered
// header list, and an in-memory content block. Content is loaded eagerly
// (bounded by Content-Length) because the transformer may need to inspect
// or replace it before re-emission, and archive records rarely exceed a
// few tens of MB.
type Record struct {
	Version string // e.g. "WARC/1.0"
	Header  Header
	Content []byte
}

// ContentType returns the content block's declared Content-Type header.
func (r *Record) ContentType() string { return r.Header.Get("Content-Type") }

func (r *Record) String() string {
	return fmt.Sprintf("%s %s %s (%d bytes)", r.Version, r.Header.Type(), r.Header.Get("WARC-Record-ID"), len(r.Content))
}
