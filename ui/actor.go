package ui

import (
	"time"

	"github.com/zoza1982/netscanner/capture"
	"github.com/zoza1982/netscanner/discovery"
	"github.com/zoza1982/netscanner/export"
	"github.com/zoza1982/netscanner/netdump"
	"github.com/zoza1982/netscanner/ports"
	"github.com/zoza1982/netscanner/printer"
)

const (
	tickInterval   = 250 * time.Millisecond
	renderInterval = time.Second / 60

	// User actions are few; a small buffer absorbs key bursts without ever
	// blocking the tview event goroutine.
	actionChannelSize = 64
)

type ActionType int

const (
	ActionTabChange ActionType = iota
	ActionActiveInterface
	ActionUp
	ActionDown
	ActionLeft
	ActionRight
	ActionDumpToggle
	ActionModeChange
	ActionApplyFilter
	ActionInputChanged
	ActionClear
	ActionExport
	ActionQuit
)

// Action is one user-originated event entering the actor.
type Action struct {
	Type  ActionType
	Tab   netdump.Tab
	Iface capture.Interface
	Mode  Mode
	Text  string
}

// Actor is the single-threaded owner of all user-visible state. Capture
// events, user actions, and the two timers multiplex into its loop; nothing
// else touches the histories.
type Actor struct {
	state     *State
	ctrl      *capture.Controller
	events    chan capture.Event
	actions   chan Action
	disc      *discovery.Store
	portStore *ports.Store
	exporter  *export.Exporter

	iface    capture.Interface
	hasIface bool
	errText  string

	render func(snap Snapshot)
	quit   chan struct{}
	done   chan struct{}
}

func NewActor(promiscuous bool, exportDir string, render func(Snapshot)) *Actor {
	events := make(chan capture.Event, capture.EventChannelSize)
	if render == nil {
		render = func(Snapshot) {}
	}
	return &Actor{
		state:     NewState(),
		ctrl:      capture.NewController(events, promiscuous),
		events:    events,
		actions:   make(chan Action, actionChannelSize),
		disc:      discovery.NewStore(),
		portStore: ports.NewStore(),
		exporter:  export.NewExporter(exportDir),
		render:    render,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Dispatch delivers an action to the actor without blocking the caller.
func (a *Actor) Dispatch(act Action) {
	select {
	case a.actions <- act:
	default:
	}
}

// Start launches the actor loop.
func (a *Actor) Start() {
	go a.loop()
}

// Stop cancels the loop and then shuts the capture worker down with the
// bounded wait. Blocks until the loop has exited.
func (a *Actor) Stop() {
	close(a.quit)
	<-a.done
}

func (a *Actor) loop() {
	defer close(a.done)

	tick := time.NewTicker(tickInterval)
	defer tick.Stop()
	render := time.NewTicker(renderInterval)
	defer render.Stop()

	for {
		select {
		case <-a.quit:
			a.ctrl.Shutdown()
			return
		case ev := <-a.events:
			a.handleEvent(ev)
		case act := <-a.actions:
			a.handleAction(act)
		case <-tick.C:
			a.ctrl.Tick()
			a.disc.ResolveHostnames()
		case <-render.C:
			a.render(a.snapshot())
		}
	}
}

func (a *Actor) handleEvent(ev capture.Event) {
	switch {
	case ev.Err != nil:
		a.errText = ev.Err.Error()
	case ev.Arp != nil:
		a.disc.Observe(ev.Arp.SenderIP, ev.Arp.SenderMAC)
	case ev.Record != nil:
		a.state.AddRecord(ev.Time, ev.Record, ev.Kind)
	}
}

func (a *Actor) handleAction(act Action) {
	switch act.Type {
	case ActionTabChange:
		a.state.ActiveTab = act.Tab

	case ActionActiveInterface:
		first := !a.hasIface
		a.iface = act.Iface
		a.hasIface = true
		a.errText = ""
		if first {
			a.ctrl.Start(a.iface)
		} else {
			a.ctrl.Restart(a.iface)
		}

	case ActionUp:
		if a.state.ActiveTab == netdump.TabPackets {
			a.state.SelectionUp()
		}
	case ActionDown:
		if a.state.ActiveTab == netdump.TabPackets {
			a.state.SelectionDown()
		}
	case ActionLeft:
		if a.state.ActiveTab == netdump.TabPackets {
			a.state.CycleLeft()
		}
	case ActionRight:
		if a.state.ActiveTab == netdump.TabPackets {
			a.state.CycleRight()
		}

	case ActionDumpToggle:
		if a.state.ActiveTab != netdump.TabPackets {
			return
		}
		if a.state.Paused.Load() {
			a.state.Paused.Store(false)
			if a.hasIface {
				a.ctrl.Restart(a.iface)
			}
		} else {
			a.state.Paused.Store(true)
			a.ctrl.Stop(capture.RestartWait)
		}

	case ActionModeChange:
		a.state.Mode = act.Mode

	case ActionInputChanged:
		a.state.Input = act.Text
		if act.Text == "" {
			// An emptied input applies immediately so the view is not stuck
			// on a stale filter.
			a.state.FilterStr = ""
		}

	case ActionApplyFilter:
		a.state.ApplyFilter()

	case ActionClear:
		a.state.ClearFilter()

	case ActionExport:
		a.exportData()

	case ActionQuit:
		// Handled by the hosting application; nothing to do here.
	}
}

func (a *Actor) exportData() {
	a.exporter.Write(export.Data{
		ScannedIPs:   a.disc.Snapshot(),
		ScannedPorts: a.portStore.Snapshot(),
		Arp:          a.state.HistoryFor(netdump.Arp).Snapshot(),
		Tcp:          a.state.HistoryFor(netdump.Tcp).Snapshot(),
		Udp:          a.state.HistoryFor(netdump.Udp).Snapshot(),
		Icmp:         a.state.HistoryFor(netdump.Icmp).Snapshot(),
		Icmp6:        a.state.HistoryFor(netdump.Icmp6).Snapshot(),
	})
	if a.exporter.Done() {
		printer.Infof("exported: %s\n", a.exporter.Dir())
	}
}
