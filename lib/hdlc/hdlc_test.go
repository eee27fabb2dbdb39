package hdlc

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"Empty", []byte{}},
		{"Plain bytes", []byte("hello reticulum")},
		{"Literal flag", []byte{0x01, Flag, 0x02}},
		{"Literal escape", []byte{Escape}},
		{"Flag and escape adjacent", []byte{Escape, Flag, Flag, Escape}},
		{"Masked values are not special", []byte{0x5E, 0x5D, Mask}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			escaped := EscapeBytes(tt.frame)
			assert.NotContains(t, escaped, Flag)
			got, err := Unescape(escaped)
			require.NoError(t, err)
			assert.Equal(t, tt.frame, got)
		})
	}
}

func TestEscapeUnescapeRandomRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		frame := make([]byte, rng.Intn(600))
		rng.Read(frame)
		// bias towards the special bytes
		for j := range frame {
			switch rng.Intn(8) {
			case 0:
				frame[j] = Flag
			case 1:
				frame[j] = Escape
			}
		}
		got, err := Unescape(EscapeBytes(frame))
		require.NoError(t, err)
		require.True(t, bytes.Equal(frame, got), "round trip %d", i)
	}
}

func TestEscapeOrder(t *testing.T) {
	assert.Equal(t, []byte{Escape, 0x5E}, EscapeBytes([]byte{Flag}))
	assert.Equal(t, []byte{Escape, 0x5D}, EscapeBytes([]byte{Escape}))
}

func TestUnescapeRejectsBadSequences(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"Escape followed by ordinary byte", []byte{0x01, Escape, 0x41}},
		{"Trailing escape", []byte{0x01, Escape}},
		{"Escape followed by unmasked flag", []byte{Escape, Flag}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unescape(tt.body)
			assert.ErrorIs(t, err, ErrFraming)
		})
	}
}

func TestDecode(t *testing.T) {
	packet := []byte{0x01, Flag, 0x02, Escape}
	got, err := Decode(Frame(packet))
	require.NoError(t, err)
	assert.Equal(t, packet, got)

	_, err = Decode([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrFraming)
	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrFraming)
}
