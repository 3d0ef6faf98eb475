package warcrecord

import "testing"

func TestHeaderGetSet(t *testing.T) {
	var h Header
	h.Add("WARC-Type", "response")
	h.Add("WARC-Concurrent-To", "<urn:uuid:1>")
	h.Add("WARC-Concurrent-To", "<urn:uuid:2>")

	if got := h.Get("warc-type"); got != "response" {
		t.Errorf("Get case-insensitive = %q, want %q", got, "response")
	}
	if got := h.Values("WARC-Concurrent-To"); len(got) != 2 {
		t.Errorf("Values = %v, want 2 entries", got)
	}

	h.Set("WARC-Type", "conversion")
	if got := h.Get("WARC-Type"); got != "conversion" {
		t.Errorf("Set = %q, want %q", got, "conversion")
	}
	if n := len(h.Values("WARC-Type")); n != 1 {
		t.Errorf("Set left %d values, want 1", n)
	}

	h.Del("WARC-Concurrent-To")
	if got := h.Values("WARC-Concurrent-To"); len(got) != 0 {
		t.Errorf("Del left %v, want none", got)
	}
}

func TestHeaderIsSegmented(t *testing.T) {
	var h Header
	if h.IsSegmented() {
		t.Fatal("empty header reported as segmented")
	}
	h.Add("WARC-Segment-Number", "1")
	if !h.IsSegmented() {
		t.Fatal("expected IsSegmented true")
	}
}
