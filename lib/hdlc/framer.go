package hdlc

import (
	"bytes"
	"errors"
	"sync/atomic"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Framer turns a continuous byte stream into frames. Each connection owns
// exactly one Framer; Feed mutates the internal buffer in place and must
// not be called concurrently. The counters may be read from any goroutine.
type Framer struct {
	buf     []byte
	minSize int
	deliver func(frame []byte)

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewFramer returns a Framer that passes every decoded frame longer than
// minSize to deliver, in receipt order.
func NewFramer(minSize int, deliver func(frame []byte)) *Framer {
	return &Framer{
		minSize: minSize,
		deliver: deliver,
	}
}

// Feed appends data to the buffer and delivers every complete frame it now
// contains. Bytes after the last complete frame stay buffered.
func (f *Framer) Feed(data []byte) {
	f.buf = append(f.buf, data...)
	for {
		start := bytes.IndexByte(f.buf, Flag)
		if start < 0 {
			// Nothing before a flag can ever become part of a frame.
			f.buf = f.buf[:0]
			return
		}
		end := bytes.IndexByte(f.buf[start+1:], Flag)
		if end < 0 {
			f.compact(start)
			return
		}
		end += start + 1

		frame, err := Unescape(f.buf[start+1 : end])
		switch {
		case errors.Is(err, ErrFraming):
			f.dropped.Add(1)
			log.WithField("length", end-start-1).Debug("Dropping frame with invalid escape sequence")
		case len(frame) <= f.minSize:
			// Back to back flags and runt frames end up here.
			if len(frame) > 0 {
				f.dropped.Add(1)
			}
		default:
			f.delivered.Add(1)
			f.deliver(frame)
		}
		// The closing flag opens the next frame.
		f.compact(end)
	}
}

// compact drops the first n bytes of the buffer.
func (f *Framer) compact(n int) {
	if n == 0 {
		return
	}
	f.buf = append(f.buf[:0], f.buf[n:]...)
}

// Buffered returns the number of bytes waiting for a closing flag.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Delivered returns the number of frames passed on so far.
func (f *Framer) Delivered() uint64 {
	return f.delivered.Load()
}

// Dropped returns the number of non-empty frames discarded for framing
// errors or for being too short.
func (f *Framer) Dropped() uint64 {
	return f.dropped.Load()
}
