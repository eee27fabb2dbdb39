package interfaces

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/go-i2p/go-rns/lib/hdlc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func TestTCPServerInterface(t *testing.T) {
	f := newTestFeeder()
	srv := NewTCPServerInterface("srv", "127.0.0.1:0", f)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	childID := "srv/" + conn.LocalAddr().String()

	frame := hdlc.Frame(payload(1, 30))
	_, err = conn.Write(frame[:10])
	require.NoError(t, err)
	_, err = conn.Write(frame[10:])
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(f.framesFor(childID)) == 1 }, waitFor, tick)
	assert.Equal(t, 1, srv.Clients())
	assert.Equal(t, []string{"srv", childID}, f.attached())

	parent := f.Attach("srv", nil)
	assert.EqualValues(t, 30, parent.RXBytes())

	conn.Close()
	require.Eventually(t, func() bool { return srv.Clients() == 0 }, waitFor, tick)
	assert.Equal(t, []string{"srv"}, f.attached())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("server interface did not stop")
	}
}

func TestTCPServerInterfaceCloseDropsClients(t *testing.T) {
	f := newTestFeeder()
	srv := NewTCPServerInterface("srv", "127.0.0.1:0", f)
	require.NoError(t, srv.Listen())
	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background()) }()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, waitFor, tick)

	srv.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("server interface did not stop")
	}
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
}

// acceptFailer hands out one real connection, then fails Accept once
// failNow is closed.
type acceptFailer struct {
	net.Listener
	accepted bool
	failNow  chan struct{}
}

var errTooManyFiles = errors.New("accept: too many open files")

func (l *acceptFailer) Accept() (net.Conn, error) {
	if !l.accepted {
		l.accepted = true
		return l.Listener.Accept()
	}
	<-l.failNow
	return nil, errTooManyFiles
}

func TestTCPServerInterfaceAcceptErrorDropsClients(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	failing := &acceptFailer{Listener: ln, failNow: make(chan struct{})}

	srv := NewTCPServerInterface("srv", ln.Addr().String(), newTestFeeder())
	srv.listener = failing
	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background()) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, waitFor, tick)

	close(failing.failNow)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, errTooManyFiles)
	case <-time.After(waitFor):
		t.Fatal("server interface kept waiting for its clients")
	}
	conn.SetReadDeadline(time.Now().Add(waitFor))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
	assert.Equal(t, 0, srv.Clients())
}

func TestTCPServerInterfaceListenError(t *testing.T) {
	srv := NewTCPServerInterface("srv", "256.0.0.1:1", newTestFeeder())
	assert.Error(t, srv.Run(context.Background()))
}

func TestTCPClientInterfaceReconnects(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	f := newTestFeeder()
	cli := NewTCPClientInterface("cli", ln.Addr().String(), 20*time.Millisecond, f)
	assert.Equal(t, "cli", cli.Name())
	assert.Equal(t, ln.Addr().String(), cli.Target())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cli.Run(ctx) }()

	first, err := ln.Accept()
	require.NoError(t, err)
	_, err = first.Write(hdlc.Frame(payload(1, 25)))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(f.framesFor("cli/1")) == 1 }, waitFor, tick)
	assert.True(t, cli.Online())
	assert.Equal(t, []string{"cli", "cli/1"}, f.attached())

	first.Close()

	second, err := ln.Accept()
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Write(hdlc.Frame(payload(2, 25)))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(f.framesFor("cli/2")) == 1 }, waitFor, tick)
	assert.Equal(t, payload(2, 25), f.framesFor("cli/2")[0])
	assert.Equal(t, []string{"cli", "cli/2"}, f.attached())
	assert.EqualValues(t, 2, cli.Connections())
	assert.EqualValues(t, 50, f.Attach("cli", nil).RXBytes())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("client interface did not stop")
	}
	assert.False(t, cli.Online())
	assert.Empty(t, f.attached())
}

func TestTCPClientInterfaceDiscardsPartialFrameOnReconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	f := newTestFeeder()
	cli := NewTCPClientInterface("cli", ln.Addr().String(), 20*time.Millisecond, f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cli.Run(ctx)

	first, err := ln.Accept()
	require.NoError(t, err)
	_, err = first.Write(hdlc.Frame(payload(0xAA, 40))[:30])
	require.NoError(t, err)
	first.Close()

	second, err := ln.Accept()
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Write(hdlc.Frame(payload(0xBB, 30)))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.frameCount() == 1 }, waitFor, tick)
	// Give a stray frame from the dead connection time to show up.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.frameCount())
	assert.Equal(t, [][]byte{payload(0xBB, 30)}, f.framesFor("cli/2"))
	assert.Empty(t, f.framesFor("cli/1"))
}

func TestTCPClientInterfaceStopsWhileUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	cli := NewTCPClientInterface("cli", addr, time.Hour, newTestFeeder())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, cli.Run(ctx), context.DeadlineExceeded)
}

func TestTCPTapInterfaceRelaysAndFeeds(t *testing.T) {
	target, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer target.Close()

	f := newTestFeeder()
	tap := NewTCPTapInterface("tap", "127.0.0.1:0", target.Addr().String(), f)
	require.NoError(t, tap.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tap.Run(ctx) }()

	client, err := net.Dial("tcp", tap.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	remote, err := target.Accept()
	require.NoError(t, err)
	defer remote.Close()

	up := hdlc.Frame(payload(1, 40))
	_, err = client.Write(up)
	require.NoError(t, err)
	got := make([]byte, len(up))
	_, err = io.ReadFull(remote, got)
	require.NoError(t, err)
	assert.Equal(t, up, got)

	down := hdlc.Frame(payload(hdlc.Escape, 30))
	_, err = remote.Write(down)
	require.NoError(t, err)
	got = make([]byte, len(down))
	_, err = io.ReadFull(client, got)
	require.NoError(t, err)
	assert.Equal(t, down, got)

	base := "tap/" + client.LocalAddr().String() + "/"
	require.Eventually(t, func() bool {
		return len(f.framesFor(base+TapOutbound)) == 1 && len(f.framesFor(base+TapInbound)) == 1
	}, waitFor, tick)
	assert.Equal(t, payload(1, 40), f.framesFor(base+TapOutbound)[0])
	assert.Equal(t, payload(hdlc.Escape, 30), f.framesFor(base+TapInbound)[0])
	assert.Equal(t, 1, tap.Sessions())

	parent := f.Attach("tap", nil)
	assert.EqualValues(t, 70, parent.RXBytes())

	remote.Close()
	require.Eventually(t, func() bool { return tap.Sessions() == 0 }, waitFor, tick)
	for _, name := range f.attached() {
		assert.False(t, strings.HasPrefix(name, base), name)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("tap interface did not stop")
	}
}

func TestTCPTapInterfaceUnreachableTarget(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	targetAddr := ln.Addr().String()
	ln.Close()

	tap := NewTCPTapInterface("tap", "127.0.0.1:0", targetAddr, newTestFeeder())
	require.NoError(t, tap.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tap.Run(ctx)

	client, err := net.Dial("tcp", tap.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	client.SetReadDeadline(time.Now().Add(waitFor))
	_, err = client.Read(make([]byte, 1))
	assert.Error(t, err)
	assert.Equal(t, 0, tap.Sessions())
}
