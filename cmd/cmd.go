/*
Package cmd provides CLI functionality shared by the kvgate binaries.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
)

const EnvironmentVariablePrefix = "KVGATE_"

func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", color.HiRedString("Error:"), err.Error())
}

// CatchCtrlC cancels the context upon receipt of SIGINT or SIGTERM.
func CatchCtrlC(cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals,
		syscall.SIGTERM,
		syscall.SIGINT,
	)

	go func() {
		<-signals
		signal.Stop(signals)
		cancel()
	}()
}

// SetFlagsFromEnvVariables sets each flag from an env variable named after
// it with a `KVGATE_` prefix, e.g. --log-format from KVGATE_LOG_FORMAT.
// Flags already set on the command line are left alone.
func SetFlagsFromEnvVariables(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}
		if val, present := os.LookupEnv(flagToEnvVarName(f)); present {
			if setErr := fs.Set(f.Name, val); setErr != nil {
				err = fmt.Errorf("setting --%s from environment: %w", f.Name, setErr)
			}
		}
	})
	return err
}

func flagToEnvVarName(f *pflag.Flag) string {
	return EnvironmentVariablePrefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
}
