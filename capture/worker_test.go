package capture

import (
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoza1982/netscanner/netdump"
)

// fakeSource hands out queued frames, then simulates read timeouts.
type fakeSource struct {
	frames chan []byte
	closed atomic.Bool
}

func newFakeSource(frames ...[]byte) *fakeSource {
	s := &fakeSource{frames: make(chan []byte, len(frames)+16)}
	for _, f := range frames {
		s.frames <- f
	}
	return s
}

func (s *fakeSource) ReadFrame() ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-time.After(5 * time.Millisecond):
		return nil, errReadTimeout
	}
}

func (s *fakeSource) Close() {
	s.closed.Store(true)
}

type fakeOpener struct {
	mu      sync.Mutex
	err     error
	sources []*fakeSource
	opened  []string
	// Tracks how many sources are open at once; must never exceed one.
	concurrent    atomic.Int32
	maxConcurrent atomic.Int32
	next          func() *fakeSource
}

func newFakeOpener(next func() *fakeSource) *fakeOpener {
	return &fakeOpener{next: next}
}

func (f *fakeOpener) open(iface Interface, promiscuous bool) (frameSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.opened = append(f.opened, iface.Name)
	src := f.next()
	f.sources = append(f.sources, src)

	n := f.concurrent.Add(1)
	if n > f.maxConcurrent.Load() {
		f.maxConcurrent.Store(n)
	}
	return &countingSource{fakeSource: src, opener: f}, nil
}

func (f *fakeOpener) openedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.opened))
	copy(out, f.opened)
	return out
}

type countingSource struct {
	*fakeSource
	opener *fakeOpener
}

func (s *countingSource) Close() {
	s.fakeSource.Close()
	s.opener.concurrent.Add(-1)
}

func ethIface(name string) Interface {
	return Interface{Name: name, Flags: net.FlagUp | net.FlagBroadcast}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %s", timeout)
}

func TestWorkerEmitsDissectedRecords(t *testing.T) {
	frame := netdump.CreateUDPFrame(
		net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), 5000, 53, make([]byte, 24))

	events := make(chan Event, EventChannelSize)
	var stop atomic.Bool
	src := newFakeSource(frame)
	w := newWorker(ethIface("eth0"), true, events, newFakeOpener(func() *fakeSource { return src }), &stop)
	go w.run()

	var ev Event
	select {
	case ev = <-events:
	case <-time.After(time.Second):
		t.Fatal("no event from worker")
	}

	require.NotNil(t, ev.Record)
	assert.Equal(t, netdump.Udp, ev.Kind)
	assert.Contains(t, ev.Record.RawStr(), "10.0.0.1:5000 > 10.0.0.2:53")
	assert.False(t, ev.Time.IsZero())

	stop.Store(true)
	waitFor(t, time.Second, w.Finished)
	assert.True(t, src.closed.Load())
}

func TestWorkerEmitsArpSideChannel(t *testing.T) {
	senderMAC, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	targetMAC, _ := net.ParseMAC("00:00:00:00:00:00")
	frame := netdump.CreateARPFrame(
		senderMAC, net.ParseIP("192.168.1.10"),
		targetMAC, net.ParseIP("192.168.1.1"), 1)

	events := make(chan Event, EventChannelSize)
	var stop atomic.Bool
	src := newFakeSource(frame)
	w := newWorker(ethIface("eth0"), true, events, newFakeOpener(func() *fakeSource { return src }), &stop)
	go w.run()

	// Two events arrive: the side-channel notification, then the record.
	var arpEv, recEv Event
	select {
	case arpEv = <-events:
	case <-time.After(time.Second):
		t.Fatal("no ARP side-channel event")
	}
	select {
	case recEv = <-events:
	case <-time.After(time.Second):
		t.Fatal("no ARP record event")
	}

	require.NotNil(t, arpEv.Arp)
	assert.Equal(t, "192.168.1.10", arpEv.Arp.SenderIP.String())
	require.NotNil(t, recEv.Record)
	assert.Equal(t, netdump.Arp, recEv.Kind)

	stop.Store(true)
	waitFor(t, time.Second, w.Finished)
}

// After setting stop, the worker terminates within twice the read timeout.
func TestWorkerStopIsPrompt(t *testing.T) {
	events := make(chan Event, EventChannelSize)
	var stop atomic.Bool
	src := newFakeSource()
	w := newWorker(ethIface("eth0"), true, events, newFakeOpener(func() *fakeSource { return src }), &stop)
	go w.run()

	// Let the loop settle into timeout reads.
	time.Sleep(20 * time.Millisecond)
	stop.Store(true)

	waitFor(t, 2*ReadTimeout, w.Finished)
}

func TestWorkerDropsOnFullChannel(t *testing.T) {
	frame := netdump.CreateUDPFrame(
		net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), 1, 2, make([]byte, 8))

	// Channel of one: the second and third records must be dropped, and the
	// worker must not block.
	events := make(chan Event, 1)
	var stop atomic.Bool
	src := newFakeSource(frame, frame, frame)
	w := newWorker(ethIface("eth0"), true, events, newFakeOpener(func() *fakeSource { return src }), &stop)
	go w.run()

	waitFor(t, time.Second, func() bool { return len(src.frames) == 0 })

	stop.Store(true)
	waitFor(t, time.Second, w.Finished)
	assert.Equal(t, 1, len(events))
}

func TestWorkerSurfacesOpenError(t *testing.T) {
	events := make(chan Event, EventChannelSize)
	var stop atomic.Bool
	op := newFakeOpener(nil)
	op.err = NewCaptureError(ErrorPermission, errors.New("insufficient permissions to capture on eth0"))

	w := newWorker(ethIface("eth0"), true, events, op, &stop)
	go w.run()

	var ev Event
	select {
	case ev = <-events:
	case <-time.After(time.Second):
		t.Fatal("no error event from worker")
	}
	require.Error(t, ev.Err)
	assert.Equal(t, ErrorPermission, GetErrorType(ev.Err))
	waitFor(t, time.Second, w.Finished)
}

func TestWrapOpenErrorClassifiesPermission(t *testing.T) {
	err := wrapOpenError(errors.New("eth0: Operation not permitted"), "eth0")
	assert.Equal(t, ErrorPermission, GetErrorType(err))
	assert.Contains(t, err.Error(), "CAP_NET_RAW")

	err = wrapOpenError(errors.New("something else broke"), "eth0")
	assert.Equal(t, ErrorOther, GetErrorType(err))
}

func TestNeedsSyntheticFrameFalseForBroadcast(t *testing.T) {
	// Broadcast-capable interfaces never take the synthetic-frame path,
	// regardless of platform.
	assert.False(t, needsSyntheticFrame(ethIface("eth0")))
}
