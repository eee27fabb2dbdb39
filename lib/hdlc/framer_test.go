package hdlc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testMinSize = 19

type collector struct {
	frames [][]byte
}

func (c *collector) deliver(frame []byte) {
	c.frames = append(c.frames, frame)
}

func packetOf(n int, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, n)
}

func TestFramerDeliversCompleteFrames(t *testing.T) {
	c := &collector{}
	f := NewFramer(testMinSize, c.deliver)

	a := packetOf(30, 0x01)
	b := append(packetOf(25, 0x02), Flag, Escape)
	stream := append(Frame(a), Frame(b)...)

	f.Feed(stream)
	if assert.Len(t, c.frames, 2) {
		assert.Equal(t, a, c.frames[0])
		assert.Equal(t, b, c.frames[1])
	}
	assert.EqualValues(t, 2, f.Delivered())
}

func TestFramerHandlesSplitInput(t *testing.T) {
	c := &collector{}
	f := NewFramer(testMinSize, c.deliver)

	packet := append(packetOf(40, 0x33), Flag, 0x00, Escape)
	stream := Frame(packet)

	// one byte at a time, including a split escape sequence
	for _, b := range stream {
		f.Feed([]byte{b})
	}
	if assert.Len(t, c.frames, 1) {
		assert.Equal(t, packet, c.frames[0])
	}
	// the closing flag stays buffered as the next opening flag
	assert.Equal(t, 1, f.Buffered())
}

func TestFramerKeepsTrailingPartialFrame(t *testing.T) {
	c := &collector{}
	f := NewFramer(testMinSize, c.deliver)

	first := packetOf(20, 0x0A)
	second := packetOf(50, 0x0B)
	secondFrame := Frame(second)

	f.Feed(append(Frame(first), secondFrame[:10]...))
	assert.Len(t, c.frames, 1)
	assert.Greater(t, f.Buffered(), 0)

	f.Feed(secondFrame[10:])
	if assert.Len(t, c.frames, 2) {
		assert.Equal(t, second, c.frames[1])
	}
}

func TestFramerDropsBadEscapeAndContinues(t *testing.T) {
	c := &collector{}
	f := NewFramer(testMinSize, c.deliver)

	bad := append([]byte{Flag}, packetOf(25, 0x01)...)
	bad = append(bad, Escape, 0x41) // invalid escape
	bad = append(bad, packetOf(5, 0x01)...)
	good := packetOf(30, 0x07)

	f.Feed(append(bad, Frame(good)...))
	if assert.Len(t, c.frames, 1) {
		assert.Equal(t, good, c.frames[0])
	}
	assert.EqualValues(t, 1, f.Dropped())
}

func TestFramerDropsShortFrames(t *testing.T) {
	c := &collector{}
	f := NewFramer(testMinSize, c.deliver)

	f.Feed(Frame(packetOf(testMinSize, 0x01)))   // exactly the minimum: dropped
	f.Feed(Frame(packetOf(testMinSize-1, 0x01))) // shorter: dropped
	f.Feed(Frame(packetOf(testMinSize+1, 0x01))) // delivered
	if assert.Len(t, c.frames, 1) {
		assert.Len(t, c.frames[0], testMinSize+1)
	}
	assert.EqualValues(t, 2, f.Dropped())
}

func TestFramerIgnoresNoiseBetweenFrames(t *testing.T) {
	c := &collector{}
	f := NewFramer(testMinSize, c.deliver)

	f.Feed([]byte("garbage before any flag"))
	assert.Equal(t, 0, f.Buffered())

	packet := packetOf(32, 0x44)
	f.Feed(append([]byte{Flag, Flag, Flag}, Frame(packet)...))
	if assert.Len(t, c.frames, 1) {
		assert.Equal(t, packet, c.frames[0])
	}
	assert.EqualValues(t, 0, f.Dropped(), "empty frames between flags are not counted")
}

func TestFramerPreservesOrder(t *testing.T) {
	c := &collector{}
	f := NewFramer(testMinSize, c.deliver)

	var stream []byte
	for i := 0; i < 10; i++ {
		stream = append(stream, Frame(packetOf(20+i, byte(i)))...)
	}
	f.Feed(stream)
	if assert.Len(t, c.frames, 10) {
		for i, frame := range c.frames {
			assert.Equal(t, byte(i), frame[0])
			assert.Len(t, frame, 20+i)
		}
	}
}
