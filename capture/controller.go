package capture

import (
	"sync/atomic"
	"time"

	"github.com/zoza1982/netscanner/printer"
)

const (
	// How often the bounded join re-checks the worker's finished flag.
	joinPollInterval = 50 * time.Millisecond

	// Ceiling on the wait for a worker to exit before a restart.
	RestartWait = 1 * time.Second

	// Ceiling on the wait during shutdown. A worker still running after this
	// is leaked deliberately; the process must exit anyway.
	ShutdownWait = 2 * time.Second
)

// Controller mediates start/stop/restart of the single capture worker. It is
// driven from the UI actor goroutine only; the stop flag is the sole value
// shared with the worker.
type Controller struct {
	events      chan<- Event
	opener      opener
	promiscuous bool

	stop    atomic.Bool
	worker  *Worker
	pending *Interface // deferred restart target
}

func NewController(events chan<- Event, promiscuous bool) *Controller {
	return &Controller{
		events:      events,
		opener:      pcapOpener{},
		promiscuous: promiscuous,
	}
}

// Running reports whether a worker exists whose loop has not exited.
func (c *Controller) Running() bool {
	return c.worker != nil && !c.worker.Finished()
}

// ActiveInterface returns the interface of the current worker, if any.
func (c *Controller) ActiveInterface() (Interface, bool) {
	if c.worker == nil {
		return Interface{}, false
	}
	return c.worker.Interface(), true
}

// Start spawns a worker for iface. The stop flag is cleared before the spawn
// so a fresh worker can never observe a stale stop. No-op while a worker
// handle exists.
func (c *Controller) Start(iface Interface) {
	if c.worker != nil {
		return
	}
	c.stop.Store(false)
	w := newWorker(iface, c.promiscuous, c.events, c.opener, &c.stop)
	c.worker = w
	printer.Debugf("starting capture worker for interface %s\n", iface.Name)
	go w.run()
}

// Stop signals the worker and waits up to wait for it to exit, polling its
// finished flag. If it exits the handle is released; otherwise the handle is
// retained so a later Start cannot race two workers onto one device.
// Returns true when the worker exited within the wait.
func (c *Controller) Stop(wait time.Duration) bool {
	if c.worker == nil {
		return true
	}
	c.stop.Store(true)

	deadline := time.Now().Add(wait)
	for !c.worker.Finished() && time.Now().Before(deadline) {
		time.Sleep(joinPollInterval)
	}

	if c.worker.Finished() {
		printer.Debugf("capture worker stopped\n")
		c.worker = nil
		return true
	}
	printer.Warningf("capture worker did not stop within %s; deferring cleanup\n", wait)
	return false
}

// Restart stops the current worker and starts a new one on iface. When the
// old worker outlives the bounded wait, the start is deferred to Tick so that
// at most one worker ever holds the device.
func (c *Controller) Restart(iface Interface) {
	if c.Stop(RestartWait) {
		c.Start(iface)
		return
	}
	c.pending = &iface
}

// Tick runs deferred restarts. Called periodically by the UI actor.
func (c *Controller) Tick() {
	if c.pending == nil {
		return
	}
	if c.worker != nil {
		if !c.worker.Finished() {
			return
		}
		c.worker = nil
	}
	iface := *c.pending
	c.pending = nil
	c.Start(iface)
}

// Shutdown stops the worker with the longer shutdown ceiling. A worker that
// does not exit in time is leaked.
func (c *Controller) Shutdown() {
	c.pending = nil
	if !c.Stop(ShutdownWait) {
		printer.Warningf("leaking capture worker at shutdown\n")
		c.worker = nil
	}
}
