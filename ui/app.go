package ui

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/zoza1982/netscanner/capture"
	"github.com/zoza1982/netscanner/netdump"
	"github.com/zoza1982/netscanner/printer"
)

// App hosts the tview application around the actor. tview callbacks run on
// the tview event goroutine and communicate with the actor exclusively
// through Dispatch; the actor pushes Snapshots back via QueueUpdateDraw.
type App struct {
	actor *Actor
	ring  *printer.Ring

	app    *tview.Application
	pages  *tview.Pages
	table  *tview.Table
	hosts  *tview.Table
	ports  *tview.Table
	input  *tview.InputField
	tabs   *tview.TextView
	footer *tview.TextView

	// Mirror of the actor's mode for the input-capture callback, which runs
	// on the tview goroutine.
	inputMode atomic.Bool

	// Tab as last rendered, so the Tab key can cycle from the right place.
	shownTab atomic.Int32

	// Set once the tview loop has exited; render callbacks arriving after
	// that must not queue updates into a dead application.
	stopped atomic.Bool
}

func NewApp(promiscuous bool, exportDir string) *App {
	a := &App{
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
		table:  tview.NewTable(),
		hosts:  tview.NewTable(),
		ports:  tview.NewTable(),
		input:  tview.NewInputField(),
		tabs:   tview.NewTextView(),
		footer: tview.NewTextView(),
	}
	a.actor = NewActor(promiscuous, exportDir, a.draw)
	return a
}

// SetInterface submits the initial or replacement capture interface.
func (a *App) SetInterface(iface capture.Interface) {
	a.actor.Dispatch(Action{Type: ActionActiveInterface, Iface: iface})
}

// Run builds the widgets, starts the actor, and blocks in the tview event
// loop until the user quits.
func (a *App) Run() error {
	// While the TUI owns the terminal, printer output goes to a ring shown in
	// the footer.
	a.ring = printer.SwitchToCapture(50)

	a.buildWidgets()
	a.app.SetInputCapture(a.captureKey)

	a.actor.Start()

	err := a.app.SetRoot(a.rootLayout(), true).Run()
	a.stopped.Store(true)
	a.actor.Stop()
	return err
}

func (a *App) buildWidgets() {
	a.tabs.SetDynamicColors(true)
	a.footer.SetDynamicColors(true)

	a.table.SetBorder(true)
	a.table.SetTitle("|Packets|")
	a.table.SetFixed(1, 0)
	a.table.SetSelectable(false, false)

	a.hosts.SetBorder(true)
	a.hosts.SetTitle("|Discovery|")
	a.ports.SetBorder(true)
	a.ports.SetTitle("|Ports|")

	a.input.SetLabel("filter: ")
	a.input.SetFieldWidth(30)
	a.input.SetBorder(true)
	a.input.SetChangedFunc(func(text string) {
		a.actor.Dispatch(Action{Type: ActionInputChanged, Text: text})
	})
	a.input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			a.actor.Dispatch(Action{Type: ActionApplyFilter})
			a.leaveInputMode()
		case tcell.KeyEscape:
			a.leaveInputMode()
		}
	})

	packetsPage := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.table, 0, 1, true).
		AddItem(a.input, 3, 0, false)

	a.pages.AddPage(netdump.TabDiscovery.String(), a.hosts, true, true)
	a.pages.AddPage(netdump.TabPackets.String(), packetsPage, true, false)
	a.pages.AddPage(netdump.TabPorts.String(), a.ports, true, false)
}

func (a *App) rootLayout() tview.Primitive {
	return tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.tabs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.footer, 1, 0, false)
}

func (a *App) leaveInputMode() {
	a.actor.Dispatch(Action{Type: ActionModeChange, Mode: ModeNormal})
	a.inputMode.Store(false)
	a.app.SetFocus(a.pages)
}

func (a *App) enterInputMode() {
	a.actor.Dispatch(Action{Type: ActionModeChange, Mode: ModeInput})
	a.inputMode.Store(true)
	a.app.SetFocus(a.input)
}

// captureKey translates raw key events into actions. In input mode no key is
// translated; the input field consumes every key.
func (a *App) captureKey(event *tcell.EventKey) *tcell.EventKey {
	if a.inputMode.Load() {
		return event
	}

	switch event.Key() {
	case tcell.KeyTAB:
		next := netdump.Tab(a.shownTab.Load()).Next()
		a.actor.Dispatch(Action{Type: ActionTabChange, Tab: next})
		return nil
	case tcell.KeyUp:
		a.actor.Dispatch(Action{Type: ActionUp})
		return nil
	case tcell.KeyDown:
		a.actor.Dispatch(Action{Type: ActionDown})
		return nil
	case tcell.KeyLeft:
		a.actor.Dispatch(Action{Type: ActionLeft})
		return nil
	case tcell.KeyRight:
		a.actor.Dispatch(Action{Type: ActionRight})
		return nil
	case tcell.KeyCtrlC:
		a.app.Stop()
		return nil
	}

	switch event.Rune() {
	case 'q', 'Q':
		a.app.Stop()
		return nil
	case 'd':
		a.actor.Dispatch(Action{Type: ActionDumpToggle})
		return nil
	case 'i':
		if netdump.Tab(a.shownTab.Load()) == netdump.TabPackets {
			a.enterInputMode()
		}
		return nil
	case 'c':
		a.actor.Dispatch(Action{Type: ActionClear})
		return nil
	case 'e':
		a.actor.Dispatch(Action{Type: ActionExport})
		return nil
	}
	return event
}

// draw is the actor's render callback. It hands the snapshot to the tview
// goroutine; nothing here touches actor state.
func (a *App) draw(snap Snapshot) {
	if a.stopped.Load() {
		return
	}
	a.shownTab.Store(int32(snap.ActiveTab))
	a.app.QueueUpdateDraw(func() {
		a.renderTabs(snap)
		a.renderFooter(snap)
		a.pages.SwitchToPage(snap.ActiveTab.String())
		switch snap.ActiveTab {
		case netdump.TabPackets:
			a.renderPackets(snap)
		case netdump.TabDiscovery:
			a.renderHosts(snap)
		case netdump.TabPorts:
			a.renderPorts(snap)
		}
	})
}

func (a *App) renderTabs(snap Snapshot) {
	var b strings.Builder
	for _, tab := range netdump.Tabs() {
		if tab == snap.ActiveTab {
			fmt.Fprintf(&b, "[green::b] %s [-:-:-]", tab)
		} else {
			fmt.Fprintf(&b, "[gray] %s [-]", tab)
		}
	}
	if snap.IfaceName != "" {
		fmt.Fprintf(&b, " [yellow]|iface: %s|[-]", snap.IfaceName)
	}
	a.tabs.SetText(b.String())
}

func (a *App) renderFooter(snap Snapshot) {
	var b strings.Builder
	if snap.Paused {
		b.WriteString("[gray]|dump: paused|[-] ")
	} else {
		b.WriteString("[green]|dump: running|[-] ")
	}
	if snap.FilterStr != "" {
		fmt.Fprintf(&b, "[yellow]|filter: %s|[-] ", snap.FilterStr)
	}
	if snap.ExportDone {
		fmt.Fprintf(&b, "[green]|exported: %s/*|[-] ", snap.ExportDir)
	}
	if snap.ErrText != "" {
		// Only the first line of the error is shown.
		line := snap.ErrText
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		fmt.Fprintf(&b, "[red]%s[-]", tview.Escape(line))
	} else if a.ring != nil {
		if last := a.ring.Last(); last != "" {
			b.WriteString(tview.Escape(last))
		}
	}
	a.footer.SetText(b.String())
}

func (a *App) renderPackets(snap Snapshot) {
	title := make([]string, 0, 8)
	for _, t := range netdump.PacketTypes() {
		if t == snap.PacketType {
			title = append(title, fmt.Sprintf("[%s]", t))
		} else {
			title = append(title, t.String())
		}
	}
	a.table.SetTitle(fmt.Sprintf("|< %s >|", strings.Join(title, " ")))

	a.table.Clear()
	a.table.SetCell(0, 0, tview.NewTableCell("time").SetTextColor(tcell.ColorYellow).SetSelectable(false))
	a.table.SetCell(0, 1, tview.NewTableCell("packet log").SetTextColor(tcell.ColorYellow).SetSelectable(false).SetExpansion(1))

	for i, row := range snap.Rows {
		timeCell := tview.NewTableCell(row.Time).SetTextColor(tcell.ColorDarkCyan)
		logCell := tview.NewTableCell(tview.Escape(row.Log)).SetExpansion(1)
		if i == snap.Selected {
			timeCell.SetBackgroundColor(tcell.ColorDarkSlateGray)
			logCell.SetBackgroundColor(tcell.ColorDarkSlateGray)
		}
		a.table.SetCell(i+1, 0, timeCell)
		a.table.SetCell(i+1, 1, logCell)
	}

	if len(snap.Rows) > 0 {
		a.table.ScrollToEnd()
	}
}

func (a *App) renderHosts(snap Snapshot) {
	a.hosts.Clear()
	for c, h := range []string{"ip", "mac", "hostname", "vendor"} {
		a.hosts.SetCell(0, c, tview.NewTableCell(h).SetTextColor(tcell.ColorYellow).SetSelectable(false))
	}
	for i, host := range snap.Hosts {
		a.hosts.SetCell(i+1, 0, tview.NewTableCell(host.IP))
		a.hosts.SetCell(i+1, 1, tview.NewTableCell(host.MAC))
		a.hosts.SetCell(i+1, 2, tview.NewTableCell(host.Hostname))
		a.hosts.SetCell(i+1, 3, tview.NewTableCell(host.Vendor))
	}
}

func (a *App) renderPorts(snap Snapshot) {
	a.ports.Clear()
	for c, h := range []string{"ip", "ports"} {
		a.ports.SetCell(0, c, tview.NewTableCell(h).SetTextColor(tcell.ColorYellow).SetSelectable(false))
	}
	for i, sp := range snap.Ports {
		joined := make([]string, len(sp.Ports))
		for j, p := range sp.Ports {
			joined[j] = fmt.Sprintf("%d", p)
		}
		a.ports.SetCell(i+1, 0, tview.NewTableCell(sp.IP))
		a.ports.SetCell(i+1, 1, tview.NewTableCell(strings.Join(joined, ":")))
	}
}
