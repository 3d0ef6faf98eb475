package mimemap

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		in        string
		wantCanon string
		wantOK    bool
	}{
		{"application/pdf", "application/pdf", true},
		{"application/x-vnd.ms-excel", "application/vnd.ms-excel", true},
		{"application/msword", "application/msword", true},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"text/rtf", "text/rtf", true},
		{"application/vnd.oasis.opendocument.text", "application/vnd.oasis.opendocument.text", true},
		{"acrobat", "application/pdf", true},
		{"text/html", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.in)
		if ok != tt.wantOK || got != tt.wantCanon {
			t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.wantCanon, tt.wantOK)
		}
	}
}

func TestNoticeEndsWithPeriod(t *testing.T) {
	n := Notice()
	if n == "" || n[len(n)-1] != '.' {
		t.Errorf("Notice() = %q, want trailing period", n)
	}
}
