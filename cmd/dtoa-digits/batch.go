package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lattice-substrate/float-digits/dtoaerr"
)

// maxBatchInput bounds how much batch reads from a file or stdin.
const maxBatchInput = 64 << 20

func newBatchCommand(opts *options) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "batch [flags] [file|-]",
		Short: "Convert one value per line, in parallel, preserving order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobs < 1 {
				return dtoaerr.New(dtoaerr.CLIUsage, "batch", fmt.Sprintf("--jobs must be positive, got %d", jobs))
			}
			input, err := readInput(args, opts.stdin, maxBatchInput)
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), opts, input, jobs)
		},
	}
	cmd.Flags().IntVar(&jobs, "jobs", runtime.GOMAXPROCS(0), "number of values converted concurrently")
	return cmd
}

type batchLine struct {
	no    int
	value string
}

func runBatch(ctx context.Context, opts *options, input []byte, jobs int) error {
	lines := splitLines(input)
	out := make([]string, len(lines))
	precision := opts.precision()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, ln := range lines {
		i, ln := i, ln
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := convertOne(opts.log, ln.value, precision, opts.json, false)
			if err != nil {
				return dtoaerr.Wrap(dtoaerr.ClassOf(err), "batch", fmt.Sprintf("line %d", ln.no), err)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, s := range out {
		if err := writeLine(opts.stdout, s); err != nil {
			return err
		}
	}
	return nil
}

// splitLines returns the non-blank, non-comment lines with their 1-based
// line numbers.
func splitLines(input []byte) []batchLine {
	var lines []batchLine
	for i, raw := range bytes.Split(input, []byte("\n")) {
		v := bytes.TrimSpace(raw)
		if len(v) == 0 || v[0] == '#' {
			continue
		}
		lines = append(lines, batchLine{no: i + 1, value: string(v)})
	}
	return lines
}

func readInput(positional []string, stdin io.Reader, maxInputSize int) ([]byte, error) {
	if len(positional) == 0 || positional[0] == "-" {
		return readBounded(stdin, maxInputSize)
	}

	f, err := os.Open(positional[0])
	if err != nil {
		return nil, dtoaerr.Wrap(dtoaerr.InvalidInput, "batch", fmt.Sprintf("read file %q", positional[0]), err)
	}
	defer func() {
		_ = f.Close()
	}()
	return readBounded(f, maxInputSize)
}

func readBounded(r io.Reader, maxInputSize int) ([]byte, error) {
	lr := io.LimitReader(r, int64(maxInputSize)+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, dtoaerr.Wrap(dtoaerr.InternalIO, "batch", "read input", err)
	}
	if len(data) > maxInputSize {
		return nil, dtoaerr.New(dtoaerr.InvalidInput, "batch", fmt.Sprintf("input exceeds maximum size %d bytes", maxInputSize))
	}
	return data, nil
}
