package mjpeg

import "bytes"

// DefaultMaxBufferSize bounds the accumulation buffer (16 MiB). A stream that
// grows the buffer past this without completing a part is treated as broken.
const DefaultMaxBufferSize = 16 * 1024 * 1024

// crlf precedes every boundary after the first one.
var crlf = []byte("\r\n")

// OutcomeKind classifies the result of a Drain call.
type OutcomeKind int

const (
	// NeedMoreData means the buffer holds no complete part yet.
	NeedMoreData OutcomeKind = iota
	// FrameReady means a payload was extracted.
	FrameReady
)

// String returns the outcome name.
func (k OutcomeKind) String() string {
	switch k {
	case NeedMoreData:
		return "need_more_data"
	case FrameReady:
		return "frame_ready"
	default:
		return "unknown"
	}
}

// Outcome is the result of one Drain call.
type Outcome struct {
	// Kind is FrameReady or NeedMoreData.
	Kind OutcomeKind
	// Payload is a freshly allocated copy of the frame bytes (FrameReady only).
	Payload []byte
	// Rest is the retained buffer with every consumed byte removed.
	// For NeedMoreData it holds everything that was not consumed.
	Rest []byte
	// FirstFrame is the first-frame flag to use on the next call.
	FirstFrame bool
	// Discarded counts the non-empty parts dropped because they had no
	// payload.
	Discarded int
}

// Drain extracts the next frame from buf.
//
// boundary is the full token including the leading "--". While first is
// true the token is matched bare; afterwards it is matched with its leading
// CRLF, falling back to the bare token when the CRLF form is absent (some
// servers omit the line break). A CRLF sitting right before a bare match
// belongs to the delimiter and is not part of the payload, so payloads never
// end with the delimiter's CRLF.
//
// Parts that yield no payload are consumed together with their trailing
// boundary and scanning continues, so one call returns either a frame or
// NeedMoreData, never a no-op. Drain does not modify buf's contents.
func Drain(buf, boundary []byte, first bool) Outcome {
	out := Outcome{FirstFrame: first}
	if len(boundary) == 0 {
		out.Rest = buf
		return out
	}

	withCRLF := make([]byte, 0, len(crlf)+len(boundary))
	withCRLF = append(append(withCRLF, crlf...), boundary...)

	for {
		pos, tokenLen := locate(buf, boundary, withCRLF, first)
		if pos < 0 {
			out.Rest = buf
			return out
		}

		part := buf[:pos]
		if tokenLen == len(boundary) {
			part = bytes.TrimSuffix(part, crlf)
		}
		consumed := pos + tokenLen

		if len(part) > 0 {
			if payload, ok := DecodePart(part); ok {
				out.Kind = FrameReady
				out.Payload = bytes.Clone(payload)
				out.Rest = buf[consumed:]
				out.FirstFrame = false
				return out
			}
			out.Discarded++
		}
		buf = buf[consumed:]
	}
}

// locate finds the boundary token for the current position in the stream and
// returns its offset and length, or -1.
func locate(buf, bare, withCRLF []byte, first bool) (int, int) {
	if !first {
		if pos := FindBoundary(buf, withCRLF); pos >= 0 {
			return pos, len(withCRLF)
		}
	}
	// The bare fallback is sound because RFC 2046 forbids the delimiter
	// inside a part body.
	return FindBoundary(buf, bare), len(bare)
}
