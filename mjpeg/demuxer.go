package mjpeg

// Demuxer owns an accumulation buffer for callers that receive the stream in
// chunks. It is not safe for concurrent use.
type Demuxer struct {
	boundary  []byte
	buf       []byte
	first     bool
	discarded int
}

// NewDemuxer creates a Demuxer for the given boundary token ("--" included).
func NewDemuxer(boundary []byte) *Demuxer {
	return &Demuxer{boundary: append([]byte(nil), boundary...), first: true}
}

// Write appends p to the buffer. It never fails.
func (d *Demuxer) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Next returns the next complete frame, or false when more data is needed.
// The returned slice is owned by the caller.
func (d *Demuxer) Next() ([]byte, bool) {
	out := Drain(d.buf, d.boundary, d.first)
	d.discarded += out.Discarded
	d.first = out.FirstFrame
	d.buf = compact(d.buf, out.Rest)
	if out.Kind != FrameReady {
		return nil, false
	}
	return out.Payload, true
}

// Buffered returns the number of bytes held but not yet consumed.
func (d *Demuxer) Buffered() int { return len(d.buf) }

// Discarded returns the number of malformed parts dropped so far.
func (d *Demuxer) Discarded() int { return d.discarded }

// Reset drops all buffered bytes and rearms the first-frame flag.
func (d *Demuxer) Reset() {
	d.buf = d.buf[:0]
	d.first = true
	d.discarded = 0
}

// compact moves rest (a suffix of buf) to the front of buf so the backing
// array is reused instead of growing without bound.
func compact(buf, rest []byte) []byte {
	if len(rest) == len(buf) {
		return buf
	}
	n := copy(buf, rest)
	return buf[:n]
}
