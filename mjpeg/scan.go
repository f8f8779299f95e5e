package mjpeg

import "bytes"

// FindBoundary returns the offset of the first occurrence of token in buf,
// or -1 when buf does not contain it. An empty buf or token never matches.
func FindBoundary(buf, token []byte) int {
	if len(buf) == 0 || len(token) == 0 {
		return -1
	}
	return bytes.Index(buf, token)
}
