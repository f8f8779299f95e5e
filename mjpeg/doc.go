// Package mjpeg splits multipart/x-mixed-replace byte streams into frames.
//
// The wire format is the MIME multipart convention used by network cameras:
//
//	--<token>\r\n<headers>\r\n\r\n<payload>\r\n--<token>\r\n<headers>...
//
// Everything here is pure and allocation-light. The caller owns the
// accumulation buffer and threads it through successive Drain calls; Drain
// never blocks and never reads from the network.
package mjpeg
