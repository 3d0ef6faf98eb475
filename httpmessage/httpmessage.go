// Package httpmessage re-parses the HTTP message embedded in a WARC
// response record's content block into status code, content type, charset,
// and body. It deliberately leans on net/http rather than hand-rolling a
// parallel HTTP/1.x parser.
package httpmessage

import (
	"bufio"
	"bytes"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Message is the decoded view of a captured HTTP response.
type Message struct {
	StatusCode  int
	ContentType string // media type only, lower-cased, no parameters
	Charset     string // lower-cased charset= parameter, if any
	Body        []byte
}

// Diagnostic is a non-fatal anomaly observed while parsing.
type Diagnostic struct {
	Message string
}

// Parse decodes an HTTP/1.x response message from content.
func Parse(content []byte) (*Message, []Diagnostic, error) {
	var diags []Diagnostic
	br := bufio.NewReader(bytes.NewReader(content))
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		diags = append(diags, Diagnostic{Message: "truncated body: " + err.Error()})
	}
	// Anything left in br beyond the declared body is a harmless trailer in
	// practice (WARC framing, not HTTP framing) but worth a diagnostic if it
	// looks like leftover HTTP bytes rather than whitespace.
	if rest, _ := io.ReadAll(br); len(bytes.TrimSpace(rest)) > 0 {
		diags = append(diags, Diagnostic{Message: "trailing bytes after declared body"})
	}

	ct := resp.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
		params = nil
	}
	charset := ""
	if params != nil {
		charset = strings.ToLower(params["charset"])
	}

	return &Message{
		StatusCode:  resp.StatusCode,
		ContentType: strings.ToLower(mediaType),
		Charset:     charset,
		Body:        body,
	}, diags, nil
}
