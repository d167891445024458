package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/spf13/cobra"

	"github.com/lattice-substrate/float-digits/dtoa"
	"github.com/lattice-substrate/float-digits/dtoaerr"
)

const bitsPrefix = "bits:"

// roundTripPrecision is the fewest digits that always identify a double.
const roundTripPrecision = 17

func newConvertCommand(opts *options) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "convert [flags] [--] <value>...",
		Short: "Convert float literals or bits:<hex> patterns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			precision := opts.precision()
			if check && precision < roundTripPrecision {
				return dtoaerr.New(dtoaerr.CLIUsage, "convert",
					fmt.Sprintf("--check needs precision >= %d, got %d", roundTripPrecision, precision))
			}
			for _, arg := range args {
				line, err := convertOne(opts.log, arg, precision, opts.json, check)
				if err != nil {
					return err
				}
				if err := writeLine(opts.stdout, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "verify the digits parse back to the same double")
	return cmd
}

// convertOne parses, converts and formats a single input value.
func convertOne(log *slog.Logger, input string, precision int, asJSON, check bool) (string, error) {
	f, err := parseValue(input)
	if err != nil {
		return "", err
	}
	d := dtoa.Decompose(f)
	if d.IsFinite() && d.Class != dtoa.ClassZero {
		log.Debug("decomposed", "input", input, "class", d.Class, "sign", d.Sign,
			"mantissa", fmt.Sprintf("%#x", d.Mantissa), "exp", d.BinaryExponent,
			"bitlen", d.MantissaBitLength,
			"estimate", dtoa.EstimateExponent(d.MantissaBitLength, d.BinaryExponent))
	} else {
		log.Debug("decomposed", "input", input, "class", d.Class, "sign", d.Sign)
	}

	n, err := dtoa.Convert(f, precision)
	if err != nil {
		return "", err
	}
	if check {
		if err := checkRoundTrip(input, f, n); err != nil {
			return "", err
		}
	}
	if asJSON {
		return formatJSON(input, d.Class, n)
	}
	return n.String(), nil
}

// parseValue accepts a strconv float literal or bits:<hex>.
func parseValue(s string) (float64, error) {
	if hex, ok := strings.CutPrefix(s, bitsPrefix); ok {
		if hex == "" || len(hex) > 16 {
			return 0, dtoaerr.New(dtoaerr.InvalidInput, "parse", fmt.Sprintf("bit pattern %q must have 1 to 16 hex digits", s))
		}
		b, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return 0, dtoaerr.Wrap(dtoaerr.InvalidInput, "parse", fmt.Sprintf("bad bit pattern %q", s), err)
		}
		return math.Float64frombits(b), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, dtoaerr.Wrap(dtoaerr.InvalidInput, "parse", fmt.Sprintf("bad float literal %q", s), err)
	}
	return f, nil
}

func checkRoundTrip(input string, f float64, n dtoa.Number) error {
	back, err := n.Float64()
	if err != nil {
		return err
	}
	same := math.Float64bits(back) == math.Float64bits(f)
	if math.IsNaN(f) {
		same = math.IsNaN(back)
	}
	if !same {
		return dtoaerr.New(dtoaerr.InvalidInput, "check",
			fmt.Sprintf("%s: digits %s parse to %016x, want %016x", input, n, math.Float64bits(back), math.Float64bits(f)))
	}
	return nil
}

// record is the --json form of a converted value.
type record struct {
	Input     string `json:"input"`
	Class     string `json:"class"`
	Precision int    `json:"precision"`
	Scale     *int   `json:"scale"`
	Sign      int    `json:"sign"`
	Digits    string `json:"digits"`
}

// formatJSON renders n as an RFC 8785 canonical JSON object, so identical
// inputs always produce identical bytes.
func formatJSON(input string, class dtoa.Class, n dtoa.Number) (string, error) {
	rec := record{
		Input:     input,
		Class:     class.String(),
		Precision: n.Precision,
		Sign:      n.Sign,
		Digits:    n.Digits,
	}
	if !n.IsNaN() && !n.IsInf() {
		scale := n.Scale
		rec.Scale = &scale
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", dtoaerr.Wrap(dtoaerr.InternalError, "json", "marshal record", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", dtoaerr.Wrap(dtoaerr.InternalError, "json", "canonicalize record", err)
	}
	return string(canonical), nil
}

func writeLine(w io.Writer, line string) error {
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return dtoaerr.Wrap(dtoaerr.InternalIO, "write", "write stream", err)
	}
	return nil
}
