// Command dtoa-gate runs the repository's required verification gates in order.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
)

type gateStep struct {
	label string
	args  []string
	fuzz  bool
}

type commandRunner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error
}

type realRunner struct{}

var requiredGateSteps = []gateStep{
	{label: "go vet", args: []string{"vet", "./..."}},
	{label: "unit tests", args: []string{"test", "./...", "-count=1", "-timeout=20m"}},
	{label: "race tests", args: []string{"test", "./...", "-race", "-count=1", "-timeout=25m"}},
	{label: "conformance", args: []string{"test", "./conformance", "-count=1", "-timeout=10m", "-v"}},
	{label: "fuzz smoke", args: []string{"test", "./dtoa", "-run", "^$", "-fuzz", "^FuzzConvertRoundTrip$"}, fuzz: true},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, realRunner{}))
}

func run(args []string, stdout, stderr io.Writer, runner commandRunner) int {
	fs := pflag.NewFlagSet("dtoa-gate", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	help := fs.BoolP("help", "h", false, "print usage")
	fuzzTime := fs.Duration("fuzztime", 10*time.Second, "duration of the fuzz smoke step (0 skips it)")
	if err := fs.Parse(args); err != nil {
		if writeErr := writeUsage(stderr, fs); writeErr != nil {
			return 1
		}
		return 2
	}
	if *help {
		if err := writeUsage(stdout, fs); err != nil {
			return 1
		}
		return 0
	}
	if fs.NArg() > 0 {
		if err := writef(stderr, "error: unknown argument %q\n", fs.Arg(0)); err != nil {
			return 1
		}
		if err := writeUsage(stderr, fs); err != nil {
			return 1
		}
		return 2
	}

	log := slog.New(tint.NewHandler(stderr, &tint.Options{Level: slog.LevelInfo, NoColor: true}))
	steps := plannedSteps(*fuzzTime)
	ctx := context.Background()
	for i, step := range steps {
		if err := writef(stdout, "[%d/%d] %s\n", i+1, len(steps), step.label); err != nil {
			return 1
		}
		start := time.Now()
		if err := runner.Run(ctx, "go", step.args, stdout, stderr); err != nil {
			log.Error("gate failed", "step", step.label, "err", err)
			return 1
		}
		log.Info("gate passed", "step", step.label, "elapsed", time.Since(start).Round(time.Millisecond))
	}

	if err := writeLine(stdout, "all gates passed"); err != nil {
		return 1
	}
	return 0
}

// plannedSteps returns the gate steps with the fuzz budget applied.
func plannedSteps(fuzzTime time.Duration) []gateStep {
	steps := make([]gateStep, 0, len(requiredGateSteps))
	for _, step := range requiredGateSteps {
		if step.fuzz {
			if fuzzTime <= 0 {
				continue
			}
			step.args = append(append([]string(nil), step.args...), "-fuzztime="+fuzzTime.String())
		}
		steps = append(steps, step)
	}
	return steps
}

func (realRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error {
	// #nosec G204 -- command and args are fixed repository gate invocations.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s %v", name, args)
	}
	return nil
}

func writeUsage(w io.Writer, fs *pflag.FlagSet) error {
	if err := writeLine(w, "usage: go run ./cmd/dtoa-gate [--fuzztime D] [--help]"); err != nil {
		return err
	}
	if err := writeLine(w, "runs: vet, tests, race, conformance, fuzz smoke"); err != nil {
		return err
	}
	return writef(w, "%s", fs.FlagUsages())
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return errors.Wrap(err, "write stream")
	}
	return nil
}
