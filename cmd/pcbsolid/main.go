// Command pcbsolid turns board descriptions into 3D solids and works with
// STEP files.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chazu/pcbsolid/internal/config"
	"github.com/chazu/pcbsolid/internal/logging"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = "dev"

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool

	app *App
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "pcbsolid",
		Short:         "Build 3D solids from PCB descriptions and work with STEP files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return ro.setup(cmd)
		},
	}
	f := cmd.PersistentFlags()
	f.StringVar(&ro.configPath, "config", "", "config file (default ./pcbsolid.yaml when present)")
	f.StringVar(&ro.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.BoolVar(&ro.logJSON, "log-json", false, "log JSON lines instead of console output")

	cmd.AddCommand(
		newBuildCmd(ro),
		newInspectCmd(ro),
		newConvertCmd(ro),
		newVersionCmd(),
	)
	return cmd
}

// setup loads the configuration and builds the logger and App. Flags win
// over the config file and the environment.
func (ro *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(ro.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = ro.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = ro.logJSON
	}

	newLogger := logging.New
	if cfg.Log.JSON {
		newLogger = logging.JSON
	}
	var log zerolog.Logger
	log, err = newLogger(cmd.ErrOrStderr(), cfg.Log.Level)
	if err != nil {
		return err
	}
	ro.app = NewApp(cfg, log)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString("pcbsolid: " + err.Error() + "\n")
		os.Exit(1)
	}
}
