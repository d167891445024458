package conformance_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lattice-substrate/float-digits/dtoa"
)

type harness struct {
	root string
	bin  string
}

type cliResult struct {
	exitCode int
	stdout   string
	stderr   string
}

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
)

func TestConformanceRequirements(t *testing.T) {
	h := testHarness(t)
	requirements := loadRequirementIDs(t, filepath.Join(h.root, "conformance", "requirements.md"))
	checks := requirementChecks()
	validateRequirementCoverage(t, requirements, checks)

	for _, id := range requirements {
		t.Run(id, func(t *testing.T) {
			checks[id](t, h)
		})
	}
}

func requirementChecks() map[string]func(*testing.T, *harness) {
	return map[string]func(*testing.T, *harness){
		"REQ-ABI-001": checkConvertFunctional,
		"REQ-ABI-002": checkNoCommandExitCode,
		"REQ-ABI-003": checkUnknownCommandExitCode,
		"REQ-CLI-001": checkUnknownOptionRejected,
		"REQ-CLI-002": checkFileAndStdinParity,
		"REQ-CLI-003": checkPrecisionEnvironment,
		"REQ-DIG-001": checkReferenceScenarios,
		"REQ-DIG-002": checkZeroPadding,
		"REQ-DIG-003": checkRoundHalfEven,
		"REQ-DIG-004": checkCarryPropagation,
		"REQ-DIG-005": checkSpecialValues,
		"REQ-DIG-006": checkPrecisionRange,
		"REQ-DIG-007": checkJSONMatchesLibrary,
		"REQ-DET-001": checkDeterministicReplay,
	}
}

func validateRequirementCoverage(t *testing.T, reqs []string, checks map[string]func(*testing.T, *harness)) {
	t.Helper()
	if len(reqs) == 0 {
		t.Fatal("no requirements found in conformance/requirements.md")
	}

	seen := make(map[string]struct{}, len(reqs))
	for _, id := range reqs {
		seen[id] = struct{}{}
		if checks[id] == nil {
			t.Fatalf("requirement %s has no conformance check", id)
		}
	}
	for id := range checks {
		if _, ok := seen[id]; !ok {
			t.Fatalf("check %s exists but is not listed in conformance/requirements.md", id)
		}
	}
}

func loadRequirementIDs(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read requirements file: %v", err)
	}

	re := regexp.MustCompile(`(?m)^\|\s*(REQ-[A-Z0-9-]+)\s*\|`)
	matches := re.FindAllStringSubmatch(string(data), -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}

func testHarness(t *testing.T) *harness {
	t.Helper()
	root := repoRoot(t)
	buildOnce.Do(func() {
		binPath, buildErr = buildConformanceBinary(root)
	})
	if buildErr != nil {
		t.Fatalf("build conformance binary: %v", buildErr)
	}
	return &harness{root: root, bin: binPath}
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("resolve current file path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), ".."))
}

func buildConformanceBinary(root string) (string, error) {
	binDir, err := os.MkdirTemp("", "dtoa-digits-conformance-*")
	if err != nil {
		return "", err
	}
	bin := filepath.Join(binDir, "dtoa-digits")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(
		ctx,
		"go", "build", "-trimpath", "-buildvcs=false", "-ldflags=-s -w -buildid=", "-o", bin, "./cmd/dtoa-digits",
	)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%v: %s", err, strings.TrimSpace(out.String()))
	}
	return bin, nil
}

func runCLI(t *testing.T, h *harness, args []string, stdin []byte, env ...string) cliResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)

	cmd := exec.CommandContext(ctx, h.bin, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Env = append(os.Environ(), env...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			t.Fatalf("run cli %v: %v", args, err)
		}
	}
	return cliResult{exitCode: code, stdout: outBuf.String(), stderr: errBuf.String()}
}

// expectLines runs convert and compares stdout line by line.
func expectLines(t *testing.T, h *harness, args []string, want ...string) {
	t.Helper()
	res := runCLI(t, h, args, nil)
	if res.exitCode != 0 {
		t.Fatalf("%v: exit %d stderr=%q", args, res.exitCode, res.stderr)
	}
	if got := strings.Split(strings.TrimSuffix(res.stdout, "\n"), "\n"); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("%v:\ngot  %q\nwant %q", args, got, want)
	}
}

func expectFailure(t *testing.T, h *harness, args []string, code int, class string) {
	t.Helper()
	res := runCLI(t, h, args, nil)
	if res.exitCode != code {
		t.Fatalf("%v: expected exit %d, got %d stderr=%q", args, code, res.exitCode, res.stderr)
	}
	if !strings.Contains(res.stderr, class) {
		t.Fatalf("%v: stderr missing %q: %q", args, class, res.stderr)
	}
	if res.stdout != "" {
		t.Fatalf("%v: unexpected stdout %q", args, res.stdout)
	}
}

func checkConvertFunctional(t *testing.T, h *harness) {
	expectLines(t, h, []string{"convert", "1"}, "sign=0 scale=0 digits=10000000000000000")
}

func checkNoCommandExitCode(t *testing.T, h *harness) {
	res := runCLI(t, h, nil, nil)
	if res.exitCode != 2 || !strings.Contains(res.stderr, "usage:") {
		t.Fatalf("expected usage with exit 2, got code=%d stderr=%q", res.exitCode, res.stderr)
	}
}

func checkUnknownCommandExitCode(t *testing.T, h *harness) {
	expectFailure(t, h, []string{"frobnicate"}, 2, "unknown command")
}

func checkUnknownOptionRejected(t *testing.T, h *harness) {
	expectFailure(t, h, []string{"convert", "--nope", "1"}, 2, "CLI_USAGE")
}

func checkFileAndStdinParity(t *testing.T, h *harness) {
	input := []byte("0.1\n-7.9228162514264338e+28\nbits:0000000000000001\n")
	path := filepath.Join(t.TempDir(), "values.txt")
	if err := os.WriteFile(path, input, 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	fromFile := runCLI(t, h, []string{"batch", path}, nil)
	fromStdin := runCLI(t, h, []string{"batch", "-"}, input)
	if fromFile.exitCode != 0 || fromStdin.exitCode != 0 {
		t.Fatalf("batch failed: file=%d stdin=%d", fromFile.exitCode, fromStdin.exitCode)
	}
	if fromFile.stdout != fromStdin.stdout {
		t.Fatalf("file/stdin mismatch: %q vs %q", fromFile.stdout, fromStdin.stdout)
	}
}

func checkPrecisionEnvironment(t *testing.T, h *harness) {
	res := runCLI(t, h, []string{"convert", "0.1"}, nil, "DTOA_PRECISION=20")
	if res.stdout != "sign=0 scale=-1 digits=10000000000000000555\n" {
		t.Fatalf("env precision ignored: %q stderr=%q", res.stdout, res.stderr)
	}
	res = runCLI(t, h, []string{"convert", "--precision", "1", "0.1"}, nil, "DTOA_PRECISION=20")
	if res.stdout != "sign=0 scale=-1 digits=1\n" {
		t.Fatalf("flag did not override env: %q stderr=%q", res.stdout, res.stderr)
	}
}

func checkReferenceScenarios(t *testing.T, h *harness) {
	expectLines(t, h, []string{"convert", "--", "-1.7976931348623157e+308", "7.9228162514264338e+28", "1000.9999999999999999999"},
		"sign=1 scale=308 digits=17976931348623157",
		"sign=0 scale=28 digits=79228162514264338",
		"sign=0 scale=3 digits=10010000000000000")
	expectLines(t, h, []string{"convert", "--precision", "15", "70.9228162514264339123", "bits:0000000000000001"},
		"sign=0 scale=1 digits=709228162514264",
		"sign=0 scale=-324 digits=494065645841247")
}

func checkZeroPadding(t *testing.T, h *harness) {
	expectLines(t, h, []string{"convert", "--precision", "12", "0.5", "1e21", "--", "-0"},
		"sign=0 scale=-1 digits=500000000000",
		"sign=0 scale=21 digits=100000000000",
		"sign=1 scale=0 digits=000000000000")
}

func checkRoundHalfEven(t *testing.T, h *harness) {
	expectLines(t, h, []string{"convert", "--precision", "1", "2.5", "3.5", "0.5"},
		"sign=0 scale=0 digits=2",
		"sign=0 scale=0 digits=4",
		"sign=0 scale=-1 digits=5")
	expectLines(t, h, []string{"convert", "--precision", "2", "0.125", "0.375"},
		"sign=0 scale=-1 digits=12",
		"sign=0 scale=-1 digits=38")
}

func checkCarryPropagation(t *testing.T, h *harness) {
	expectLines(t, h, []string{"convert", "--precision", "15", "bits:3fefffffffffffff", "1e23"},
		"sign=0 scale=0 digits=100000000000000",
		"sign=0 scale=23 digits=100000000000000")
	expectLines(t, h, []string{"convert", "--precision", "1", "9.5", "bits:7fefffffffffffff"},
		"sign=0 scale=1 digits=1",
		"sign=0 scale=308 digits=2")
}

func checkSpecialValues(t *testing.T, h *harness) {
	expectLines(t, h, []string{"convert", "NaN", "bits:fff8000000000000", "Inf", "--", "-Inf"},
		"sign=0 scale=NaN digits=",
		"sign=1 scale=NaN digits=",
		"sign=0 scale=Inf digits=",
		"sign=1 scale=Inf digits=")
}

func checkPrecisionRange(t *testing.T, h *harness) {
	expectFailure(t, h, []string{"convert", "--precision", "0", "1"}, 2, "PRECISION_RANGE")
	expectFailure(t, h, []string{"convert", "--precision", "51", "1"}, 2, "PRECISION_RANGE")
	expectLines(t, h, []string{"convert", "--precision", "50", "0.1"},
		"sign=0 scale=-1 digits=10000000000000000555111512312578270211815834045410")
}

type jsonRecord struct {
	Input     string `json:"input"`
	Class     string `json:"class"`
	Precision int    `json:"precision"`
	Scale     *int   `json:"scale"`
	Sign      int    `json:"sign"`
	Digits    string `json:"digits"`
}

func checkJSONMatchesLibrary(t *testing.T, h *harness) {
	var in bytes.Buffer
	for _, bits := range es6StaticBits {
		fmt.Fprintf(&in, "bits:%016x\n", bits)
	}
	for _, precision := range []int{1, 17, 50} {
		res := runCLI(t, h, []string{"batch", "--json", "--precision", fmt.Sprint(precision)}, in.Bytes())
		if res.exitCode != 0 {
			t.Fatalf("batch --json failed: %d stderr=%q", res.exitCode, res.stderr)
		}
		lines := strings.Split(strings.TrimSuffix(res.stdout, "\n"), "\n")
		if len(lines) != len(es6StaticBits) {
			t.Fatalf("got %d lines want %d", len(lines), len(es6StaticBits))
		}
		for i, line := range lines {
			var rec jsonRecord
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				t.Fatalf("line %d: %v: %q", i+1, err, line)
			}
			f := math.Float64frombits(es6StaticBits[i])
			want, err := dtoa.Convert(f, precision)
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			if rec.Scale == nil || *rec.Scale != want.Scale || rec.Digits != want.Digits ||
				rec.Sign != want.Sign || rec.Precision != precision || rec.Class != dtoa.Decompose(f).Class.String() {
				t.Fatalf("line %d: CLI %q, library %s", i+1, line, want)
			}
		}
	}
}

func checkDeterministicReplay(t *testing.T, h *harness) {
	var in bytes.Buffer
	for _, bits := range es6StaticBits {
		fmt.Fprintf(&in, "bits:%016x\n", bits)
	}
	first := runCLI(t, h, []string{"batch", "--precision", "33", "--jobs", "1"}, in.Bytes())
	if first.exitCode != 0 {
		t.Fatalf("first run failed: %d stderr=%q", first.exitCode, first.stderr)
	}
	for _, jobs := range []string{"2", "7", "64"} {
		res := runCLI(t, h, []string{"batch", "--precision", "33", "--jobs", jobs}, in.Bytes())
		if res.exitCode != 0 || res.stdout != first.stdout {
			t.Fatalf("jobs=%s diverged: exit %d", jobs, res.exitCode)
		}
	}
}
