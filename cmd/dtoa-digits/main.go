// Command dtoa-digits prints the exact decimal digits, scale and sign of
// IEEE 754 doubles at a chosen precision.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lattice-substrate/float-digits/dtoa"
	"github.com/lattice-substrate/float-digits/dtoaerr"
)

const (
	exitSuccess = 0

	defaultPrecision = 17
	envPrefix        = "DTOA"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	root := newRootCommand(stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		// Everything our commands return is classified; anything else came
		// from cobra rejecting the command line.
		var de *dtoaerr.Error
		if !errors.As(err, &de) {
			err = dtoaerr.Wrap(dtoaerr.CLIUsage, "", "invalid command line", err)
		}
		return writeClassifiedError(stderr, err)
	}
	return exitSuccess
}

// options holds the settings shared by every subcommand.
type options struct {
	v       *viper.Viper
	json    bool
	verbose bool
	log     *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
}

func (o *options) precision() int {
	return o.v.GetInt("precision")
}

func newRootCommand(stdin io.Reader, stdout io.Writer, stderr io.Writer) *cobra.Command {
	opts := &options{v: viper.New(), stdin: stdin, stdout: stdout}
	opts.v.SetEnvPrefix(envPrefix)
	opts.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "dtoa-digits <convert|batch> [options]",
		Short:         "Print the decimal digits of IEEE 754 doubles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.log = slog.New(tint.NewHandler(stderr, &tint.Options{Level: level, NoColor: true}))
			if p := opts.precision(); p < dtoa.MinPrecision || p > dtoa.MaxPrecision {
				return dtoaerr.New(dtoaerr.PrecisionRange, cmd.Name(),
					fmt.Sprintf("precision %d outside [%d, %d]", p, dtoa.MinPrecision, dtoa.MaxPrecision))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return dtoaerr.New(dtoaerr.CLIUsage, "", "usage: "+cmd.Use)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return dtoaerr.Wrap(dtoaerr.CLIUsage, "", "invalid flag", err)
	})

	pf := root.PersistentFlags()
	pf.Int("precision", defaultPrecision, "significant digits to produce (env DTOA_PRECISION)")
	pf.BoolVar(&opts.json, "json", false, "emit one JSON object per value")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log decomposition details to stderr")
	mustBind(opts.v, pf, "precision")

	root.AddCommand(newConvertCommand(opts), newBatchCommand(opts))
	return root
}

func mustBind(v *viper.Viper, fs *pflag.FlagSet, name string) {
	if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
		panic(err)
	}
}

func writeClassifiedError(stderr io.Writer, err error) int {
	class := dtoaerr.ClassOf(err)
	if _, werr := fmt.Fprintf(stderr, "error: %v\n", err); werr != nil {
		return dtoaerr.InternalIO.ExitCode()
	}
	return class.ExitCode()
}
