// Package export snapshots the accumulated state into CSV files under the
// user's home directory.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/zoza1982/netscanner/discovery"
	"github.com/zoza1982/netscanner/netdump"
	"github.com/zoza1982/netscanner/ports"
	"github.com/zoza1982/netscanner/printer"
)

const dotDirName = ".netscanner"

// Data is the immutable snapshot handed to Write. The packet slices come from
// History.Snapshot, so the exporter never touches live buckets.
type Data struct {
	ScannedIPs   []discovery.ScannedIP
	ScannedPorts []ports.ScannedPorts
	Arp          []netdump.TimedRecord
	Tcp          []netdump.TimedRecord
	Udp          []netdump.TimedRecord
	Icmp         []netdump.TimedRecord
	Icmp6        []netdump.TimedRecord
}

type Exporter struct {
	dir  string
	done bool

	// Failures never propagate; they only suppress the confirmation footer.
	failed bool
}

// NewExporter resolves the target directory. overrideDir, when non-empty,
// wins over the home-derived default.
func NewExporter(overrideDir string) *Exporter {
	dir := overrideDir
	if dir == "" {
		dir = filepath.Join(userHomeDir(), dotDirName)
	}
	return &Exporter{dir: dir}
}

// Dir returns the directory exports are written to.
func (e *Exporter) Dir() string {
	return e.dir
}

// Done reports whether the last export completed without error.
func (e *Exporter) Done() bool {
	return e.done && !e.failed
}

// userHomeDir derives the home directory for export. SUDO_USER maps to the
// invoking user's home so files are not buried under /root when the scanner
// runs via sudo.
func userHomeDir() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		switch runtime.GOOS {
		case "darwin":
			return "/Users/" + sudoUser
		case "windows":
			return `C:\Users\` + sudoUser
		default:
			return "/home/" + sudoUser
		}
	}

	if home, err := homedir.Dir(); err == nil && home != "" {
		return home
	}

	if runtime.GOOS == "windows" {
		return `C:\Users\Administrator`
	}
	return "/root"
}

// Write dumps all seven CSVs, named <kind>.<unix_ts>.csv. Partial failure is
// tolerated per file; any failure clears the confirmation flag.
func (e *Exporter) Write(d Data) {
	e.done = false
	e.failed = false

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		printer.Errorf("failed to create export directory %s: %v\n", e.dir, err)
		e.failed = true
		return
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)

	e.check(e.writeDiscovery(d.ScannedIPs, ts))
	e.check(e.writePorts(d.ScannedPorts, ts))
	e.check(e.writePackets(d.Arp, ts, "arp"))
	e.check(e.writePackets(d.Tcp, ts, "tcp"))
	e.check(e.writePackets(d.Udp, ts, "udp"))
	e.check(e.writePackets(d.Icmp, ts, "icmp"))
	e.check(e.writePackets(d.Icmp6, ts, "icmp6"))

	e.done = true
}

func (e *Exporter) check(err error) {
	if err != nil {
		printer.Errorf("export failed: %v\n", err)
		e.failed = true
	}
}

func (e *Exporter) writeCSV(name string, header []string, rows [][]string) error {
	path := filepath.Join(e.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "failed to flush %s", path)
}

func (e *Exporter) writeDiscovery(data []discovery.ScannedIP, ts string) error {
	rows := make([][]string, 0, len(data))
	for _, s := range data {
		rows = append(rows, []string{s.IP, s.MAC, s.Hostname, s.Vendor})
	}
	return e.writeCSV(fmt.Sprintf("scanned_ips.%s.csv", ts),
		[]string{"ip", "mac", "hostname", "vendor"}, rows)
}

func (e *Exporter) writePorts(data []ports.ScannedPorts, ts string) error {
	rows := make([][]string, 0, len(data))
	for _, s := range data {
		strs := make([]string, len(s.Ports))
		for i, p := range s.Ports {
			strs[i] = strconv.Itoa(p)
		}
		rows = append(rows, []string{s.IP, strings.Join(strs, ":")})
	}
	return e.writeCSV(fmt.Sprintf("scanned_ports.%s.csv", ts),
		[]string{"ip", "ports"}, rows)
}

func (e *Exporter) writePackets(data []netdump.TimedRecord, ts, name string) error {
	rows := make([][]string, 0, len(data))
	for _, tr := range data {
		rows = append(rows, []string{tr.Time.Format(time.RFC3339), tr.Record.RawStr()})
	}
	return e.writeCSV(fmt.Sprintf("%s_packets.%s.csv", name, ts),
		[]string{"time", "log"}, rows)
}
