// Ember CLI - compiles instruction streams to C++ and interprets them.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/ember/manifest"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// app holds what every subcommand shares.
type app struct {
	out    io.Writer
	errOut io.Writer

	dir       string
	verbosity int
	logFile   string

	manifest *manifest.Manifest
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fatal(err)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "ember",
		Short:         "Compile and run instruction streams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&a.dir, "dir", "C", "", "project directory (default: search upward from the working directory)")
	root.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "increase log verbosity")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "write logs to this file instead of stderr")

	root.AddCommand(
		newCompileCmd(a),
		newRunCmd(a),
		newDisCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads ember.toml and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	var (
		m   *manifest.Manifest
		err error
	)
	if a.dir != "" {
		m, err = manifest.Load(a.dir)
	} else {
		var wd string
		if wd, err = os.Getwd(); err == nil {
			m, err = manifest.FindAndLoad(wd)
		}
	}
	if err != nil {
		return err
	}
	if m == nil {
		m = manifest.Default()
	}
	a.manifest = m

	verbosity := m.Log.Verbosity
	if cmd.Flags().Changed("verbose") {
		verbosity = a.verbosity
	}
	path := m.LogFile()
	if a.logFile != "" {
		path = &a.logFile
	}
	commonlog.Configure(verbosity, path)
	return nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "ember %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
}
