package hdlc

import (
	"bytes"
	"errors"
)

const (
	Flag   byte = 0x7E
	Escape byte = 0x7D
	Mask   byte = 0x20
)

// ErrFraming is returned by Unescape for an escape byte that is not
// followed by the masked form of Flag or Escape.
var ErrFraming = errors.New("hdlc: invalid escape sequence")

// EscapeBytes stuffs frame so it contains no Flag bytes. Escape bytes are
// replaced first so the escapes introduced for Flag are not doubled.
func EscapeBytes(frame []byte) []byte {
	out := make([]byte, 0, len(frame)+len(frame)/8)
	for _, b := range frame {
		if b == Escape || b == Flag {
			out = append(out, Escape, b^Mask)
			continue
		}
		out = append(out, b)
	}
	return out
}

// Unescape reverses EscapeBytes on the body of a single frame.
func Unescape(body []byte) ([]byte, error) {
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		b := body[i]
		if b == Escape {
			i++
			if i >= len(body) {
				return nil, ErrFraming
			}
			b = body[i] ^ Mask
			if b != Flag && b != Escape {
				return nil, ErrFraming
			}
		}
		out = append(out, b)
	}
	return out, nil
}

// Frame wraps packet in flags after escaping it.
func Frame(packet []byte) []byte {
	escaped := EscapeBytes(packet)
	out := make([]byte, 0, len(escaped)+2)
	out = append(out, Flag)
	out = append(out, escaped...)
	return append(out, Flag)
}

// Decode extracts the first complete frame from data, which must begin
// with a Flag byte. It is the one-shot counterpart of Framer used for
// offline inspection of captured frames.
func Decode(data []byte) ([]byte, error) {
	if len(data) < 1 || data[0] != Flag {
		return nil, ErrFraming
	}
	end := bytes.IndexByte(data[1:], Flag)
	if end < 0 {
		return Unescape(data[1:])
	}
	return Unescape(data[1 : 1+end])
}
