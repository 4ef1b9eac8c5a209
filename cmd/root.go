package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zoza1982/netscanner/capture"
	"github.com/zoza1982/netscanner/printer"
	"github.com/zoza1982/netscanner/ui"
	"github.com/zoza1982/netscanner/util"
	"github.com/zoza1982/netscanner/version"
)

var (
	interfaceFlag   string
	debugFlag       bool
	promiscuousFlag bool
	exportDirFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "netscanner",
	Short:         "Interactive terminal network scanner.",
	Long:          "Captures link-layer traffic on a local interface and presents live, filterable per-protocol packet histories with CSV export.",
	Version:       version.DisplayString(),
	SilenceErrors: true, // We print our own errors in the Execute function
	SilenceUsage:  true,
	RunE:          runScanner,
}

func Execute() {
	if _, err := rootCmd.ExecuteC(); err != nil {
		exitCode := 1
		var exitErr util.ExitError
		if isExitErr := errors.As(err, &exitErr); isExitErr {
			exitCode = exitErr.ExitCode
		}
		printer.Stderr.Errorf("%s\n", err)
		os.Exit(exitCode)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&interfaceFlag, "interface", "i", "", "Network interface to capture on. Defaults to the first eligible interface.")
	viper.BindPFlag("interface", rootCmd.PersistentFlags().Lookup("interface"))

	rootCmd.PersistentFlags().BoolVar(&promiscuousFlag, "promiscuous", true, "Capture all packets on the interface, not just those addressed to this host.")
	viper.BindPFlag("promiscuous", rootCmd.PersistentFlags().Lookup("promiscuous"))

	rootCmd.PersistentFlags().StringVar(&exportDirFlag, "export-dir", "", "Directory for CSV exports. Defaults to ~/.netscanner.")
	viper.BindPFlag("export-dir", rootCmd.PersistentFlags().Lookup("export-dir"))

	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "If set, outputs detailed information for debugging.")
	rootCmd.PersistentFlags().MarkHidden("debug")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// chooseInterface resolves the capture interface: the --interface flag when
// set, otherwise the first eligible non-loopback interface.
func chooseInterface() (capture.Interface, error) {
	if interfaceFlag != "" {
		return capture.InterfaceByName(interfaceFlag)
	}

	ifaces, err := capture.EligibleInterfaces()
	if err != nil {
		return capture.Interface{}, err
	}
	for _, iface := range ifaces {
		if !iface.IsLoopback() {
			return iface, nil
		}
	}
	if len(ifaces) > 0 {
		return ifaces[0], nil
	}
	return capture.Interface{}, errors.Errorf("no usable network interface found; use --interface to select one")
}

func runScanner(cmd *cobra.Command, args []string) error {
	iface, err := chooseInterface()
	if err != nil {
		return util.ExitError{ExitCode: 2, Err: err}
	}

	app := ui.NewApp(viper.GetBool("promiscuous"), viper.GetString("export-dir"))
	app.SetInterface(iface)

	if err := app.Run(); err != nil {
		return util.ExitError{ExitCode: 1, Err: errors.Wrap(err, "failed to run terminal UI")}
	}
	return nil
}
