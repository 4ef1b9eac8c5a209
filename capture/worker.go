package capture

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/zoza1982/netscanner/netdump"
	"github.com/zoza1982/netscanner/printer"
)

// Event is one message from the capture pipeline to the UI actor. Exactly one
// of Record, Arp, or Err is set.
type Event struct {
	Time   time.Time
	Record *netdump.PacketRecord
	Kind   netdump.PacketType
	Arp    *netdump.ArpObserved
	Err    error
}

// Worker owns one open Layer-2 channel on one interface and runs the read
// loop on its own goroutine. It reads the shared stop flag every iteration
// and reports completion through its finished flag; the controller polls that
// instead of joining.
type Worker struct {
	iface       Interface
	promiscuous bool
	events      chan<- Event
	opener      opener
	stop        *atomic.Bool
	finished    atomic.Bool
}

func newWorker(iface Interface, promiscuous bool, events chan<- Event, op opener, stop *atomic.Bool) *Worker {
	return &Worker{
		iface:       iface,
		promiscuous: promiscuous,
		events:      events,
		opener:      op,
		stop:        stop,
	}
}

func (w *Worker) Interface() Interface {
	return w.iface
}

// Finished reports whether the run loop has exited. Used by the controller's
// bounded join.
func (w *Worker) Finished() bool {
	return w.finished.Load()
}

// emit delivers an event without ever blocking the read loop. A full channel
// drops the event.
func (w *Worker) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
	}
}

// needsSyntheticFrame reports whether frames from this interface arrive
// without a usable Ethernet header. Only BSD-family hosts behave this way.
func needsSyntheticFrame(iface Interface) bool {
	if runtime.GOOS != "darwin" && runtime.GOOS != "ios" {
		return false
	}
	return iface.IsUp() && !iface.IsBroadcast() &&
		((iface.IsPointToPoint() && !iface.IsLoopback()) || iface.IsLoopback())
}

func (w *Worker) run() {
	defer w.finished.Store(true)

	src, err := w.opener.open(w.iface, w.promiscuous)
	if err != nil {
		w.emit(Event{Time: time.Now(), Err: err})
		return
	}
	defer src.Close()

	printer.Debugf("capture started on %s\n", w.iface.Name)
	synthesize := needsSyntheticFrame(w.iface)

	for {
		if w.stop.Load() {
			printer.Debugf("capture loop on %s received stop signal\n", w.iface.Name)
			return
		}

		data, err := src.ReadFrame()
		if err != nil {
			// Timeouts just mean a quiet interface; other read errors are
			// transient driver hiccups and must not tear down capture.
			continue
		}

		if len(data) > SnapLen {
			printer.Warningf("frame of %d bytes exceeds buffer capacity (%d) on %s; truncating\n",
				len(data), SnapLen, w.iface.Name)
			data = data[:SnapLen]
		}

		if synthesize {
			frame, ok := netdump.SynthesizeFrame(data, w.iface.IsLoopback())
			if !ok {
				continue
			}
			data = frame
		}

		d := netdump.DissectEthernet(w.iface.Name, data)
		if d == nil {
			continue
		}

		now := time.Now()
		if d.Arp != nil {
			w.emit(Event{Time: now, Arp: d.Arp})
		}
		if d.Record != nil {
			w.emit(Event{Time: now, Record: d.Record, Kind: d.Record.Kind()})
		}
	}
}
