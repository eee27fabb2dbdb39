// Package hdlc implements the HDLC-like byte stuffing used by Reticulum
// stream interfaces (TCP, serial, KISS-less radio links).
//
// A frame on the wire is:
//
//	0x7E | escaped packet bytes | 0x7E
//
// Inside a frame 0x7D escapes a literal 0x7E or 0x7D, which is then sent
// XORed with 0x20. Any other byte after an escape is a framing error and
// the whole candidate frame is discarded.
//
// https://en.wikipedia.org/wiki/High-Level_Data_Link_Control
package hdlc
