package mjpeg

import (
	"bufio"
	"bytes"
	"net/textproto"
)

// headerBodySeparator ends the header block of a part.
var headerBodySeparator = []byte("\r\n\r\n")

// DecodePart returns the payload of one part: everything after the first
// blank line. It reports false when the part has no blank line or when the
// payload is empty; a zero-length frame is never produced.
//
// The returned slice aliases part.
func DecodePart(part []byte) ([]byte, bool) {
	i := bytes.Index(part, headerBodySeparator)
	if i < 0 {
		return nil, false
	}
	payload := part[i+len(headerBodySeparator):]
	if len(payload) == 0 {
		return nil, false
	}
	return payload, true
}

// PartHeader parses the header block of a part. Malformed header lines are
// skipped; a part without a blank line yields nil.
func PartHeader(part []byte) textproto.MIMEHeader {
	i := bytes.Index(part, headerBodySeparator)
	if i < 0 {
		return nil
	}
	// The block starts with the CRLF that terminated the boundary line.
	block := bytes.TrimLeft(part[:i+len(headerBodySeparator)], "\r\n")
	if len(block) == 0 {
		return textproto.MIMEHeader{}
	}

	r := textproto.NewReader(bufio.NewReader(bytes.NewReader(block)))
	header, err := r.ReadMIMEHeader()
	if err != nil && len(header) == 0 {
		return textproto.MIMEHeader{}
	}
	return header
}
