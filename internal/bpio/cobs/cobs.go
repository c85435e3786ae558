// Package cobs delimits binary frames on a raw byte stream using
// consistent-overhead byte stuffing.
//
// Encoded output contains no 0x00 byte; a single 0x00 terminates each
// frame on the wire. Overhead is one code byte per 254 bytes of payload
// plus the terminator, so frame boundaries stay unambiguous on links
// with no length channel.
package cobs

import "errors"

// Delimiter is the reserved frame terminator byte.
const Delimiter byte = 0x00

// maxBlock is the longest run of non-delimiter bytes one code byte can cover.
const maxBlock = 0xFF - 1

var (
	ErrOverflow    = errors.New("cobs: destination buffer overflow")
	ErrBadEncoding = errors.New("cobs: malformed stuffing sequence")
	ErrDecoderDone = errors.New("cobs: push on completed decoder")
)

// MaxEncodedLen returns the worst-case encoded size of n payload bytes,
// excluding the frame terminator.
func MaxEncodedLen(n int) int {
	return n + n/maxBlock + 1
}

// Encode appends the stuffed form of payload to dst and returns the
// extended slice. The output never contains the delimiter byte.
func Encode(dst, payload []byte) []byte {
	codeAt := len(dst)
	dst = append(dst, 0)
	code := byte(1)
	for _, b := range payload {
		if b == Delimiter {
			dst[codeAt] = code
			codeAt = len(dst)
			dst = append(dst, 0)
			code = 1
			continue
		}
		dst = append(dst, b)
		code++
		if code == 0xFF {
			dst[codeAt] = code
			codeAt = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}
	dst[codeAt] = code
	return dst
}

// EncodeFrame appends the stuffed form of payload plus the frame
// terminator to dst.
func EncodeFrame(dst, payload []byte) []byte {
	dst = Encode(dst, payload)
	return append(dst, Delimiter)
}

// Decoder reassembles one frame from arbitrarily chunked stream bytes.
// The destination buffer is caller-supplied and fixed; a frame larger
// than its capacity fails with ErrOverflow. After a frame completes the
// decoder is terminal until Reset.
type Decoder struct {
	dst  []byte
	n    int
	rem  int  // data bytes still owed by the current block
	zero bool // an implicit zero is pending before the next block
	done bool
}

/// NewDecoder returns a decoder writing decoded bytes into dst[:cap(dst)].
func NewDecoder(dst []byte) *Decoder {
	return &Decoder{dst: dst[:cap(dst)]}
}

// Reset discards accumulated state so the decoder can take the next frame.
func (d *Decoder) Reset() {
	d.n = 0
	d.rem = 0
	d.zero = false
	d.done = false
}

// Bytes returns the decoded frame. Valid once Push has reported completion
// and until the next Reset.
func (d *Decoder) Bytes() []byte {
	return d.dst[:d.n]
}

// Push consumes stream bytes from chunk. It returns the number of bytes
// consumed and whether a complete frame was decoded. On completion any
// remainder of chunk is left unconsumed for the next frame; the decoder
// must be Reset before it will accept it. Errors are terminal the same
// way: the decoder refuses further input until Reset.
func (d *Decoder) Push(chunk []byte) (consumed int, done bool, err error) {
	if d.done {
		return 0, false, ErrDecoderDone
	}
	for i, b := range chunk {
		if d.rem > 0 {
			// Inside a block: the delimiter can never appear here.
			if b == Delimiter {
				d.done = true
				return i + 1, false, ErrBadEncoding
			}
			if d.n >= len(d.dst) {
				d.done = true
				return i + 1, false, ErrOverflow
			}
			d.dst[d.n] = b
			d.n++
			d.rem--
			continue
		}
		if b == Delimiter {
			d.done = true
			return i + 1, true, nil
		}
		// Block boundary: settle the previous block's implicit zero,
		// then open the next block.
		if d.zero {
			if d.n >= len(d.dst) {
				d.done = true
				return i + 1, false, ErrOverflow
			}
			d.dst[d.n] = Delimiter
			d.n++
		}
		d.rem = int(b) - 1
		d.zero = b != 0xFF
	}
	return len(chunk), false, nil
}
