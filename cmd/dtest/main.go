// dtest runs a scanner over Decaf sources and checks each listing against a
// stored golden file or against a reference scanner run side by side.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/decaf-lang/dscan/pkg/cli"
)

// Run is one scanner invocation on one source file.
type Run struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timedOut,omitempty"`
}

type Status string

const (
	Pass    Status = "PASS"
	Fail    Status = "FAIL"
	Skip    Status = "SKIP"
	Errored Status = "ERROR"
)

type Result struct {
	File    string `json:"file"`
	Hash    string `json:"hash,omitempty"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Diff    string `json:"diff,omitempty"`
	Want    *Run   `json:"want,omitempty"`
	Got     *Run   `json:"got,omitempty"`
}

// golden is the on-disk form of an expected run.
type golden struct {
	Hash string `json:"hash"`
	Run  Run    `json:"run"`
}

type harness struct {
	scanner   []string // scanner under test, command then arguments
	reference []string // optional reference scanner
	goldenDir string   // empty means next to each source
	ignore    []string // listing lines containing one of these are not compared
	timeout   time.Duration
	jobs      int
	log       io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := cli.NewApp("dtest")
	app.Synopsis = "[options] [pattern...]"
	app.Description = "Golden-file tester for Decaf scanners. Patterns default to tests/*.decaf."
	app.Authors = []string{"the dscan authors"}
	app.Since = 2025
	app.Stdout, app.Stderr = stdout, stderr

	var (
		target, targetArgs, reference string
		skip, report, dir, ignore     string
		generate, verbose             bool
		timeout                       time.Duration
		jobs                          int
	)
	flags := app.FlagSet
	flags.String(&target, "target-scanner", "", "./dscan", "Scanner under test.", "path")
	flags.String(&targetArgs, "target-args", "", "", "Extra arguments for the scanner under test (space-separated).", "args")
	flags.String(&reference, "ref-scanner", "", "", "Reference scanner command, e.g. 'python3 scanner.py'. Takes precedence over golden files.", "cmd")
	flags.Bool(&generate, "generate-golden", "g", false, "Write golden files from the scanner under test instead of checking.")
	flags.String(&skip, "skip-files", "", "", "Files to skip (space-separated).", "files")
	flags.String(&report, "output", "o", ".test_results.json", "JSON report file.", "file")
	flags.String(&dir, "dir", "", "", "Directory for golden files and the report (defaults to each source's directory).", "dir")
	flags.String(&ignore, "ignore-lines", "", "", "Comma-separated substrings; listing lines containing one are not compared.", "list")
	flags.Duration(&timeout, "timeout", "", 5*time.Second, "Timeout for each scanner run.")
	flags.Int(&jobs, "jobs", "j", 4, "Number of parallel scanner runs.")
	flags.Bool(&verbose, "verbose", "v", false, "Show run times and stale golden files.")

	code := 0
	app.Action = func(patterns []string) error {
		if len(patterns) == 0 {
			patterns = []string{"tests/*.decaf"}
		}
		files, err := expandGlobPatterns(patterns)
		if err != nil {
			fmt.Fprintf(stderr, "dtest: %v\n", err)
			code = 2
			return nil
		}
		if len(files) == 0 {
			fmt.Fprintln(stdout, "No test files found matching the pattern(s).")
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		h := &harness{
			scanner:   append([]string{target}, strings.Fields(targetArgs)...),
			reference: strings.Fields(reference),
			goldenDir: dir,
			timeout:   timeout,
			jobs:      jobs,
		}
		if ignore != "" {
			h.ignore = strings.Split(ignore, ",")
		}
		if verbose {
			h.log = stderr
		}

		if generate {
			for _, file := range files {
				path, err := h.generate(ctx, file)
				if err != nil {
					fmt.Fprintf(stderr, "dtest: %v\n", err)
					code = 1
					continue
				}
				fmt.Fprintf(stdout, "golden file written: %s\n", path)
			}
			return nil
		}

		skipped := make(map[string]bool)
		for _, f := range strings.Fields(skip) {
			skipped[f] = true
		}
		results := h.checkAll(ctx, files, skipped)
		if ctx.Err() != nil {
			fmt.Fprintln(stderr, "dtest: interrupted")
			code = 1
			return nil
		}

		printSummary(stdout, results, cli.IsTerminal(stdout), verbose)
		if dir != "" {
			report = filepath.Join(dir, report)
		}
		if err := writeReport(report, results); err != nil {
			fmt.Fprintf(stderr, "dtest: %v\n", err)
		} else {
			fmt.Fprintf(stdout, "Full test report saved to %s\n", report)
		}
		if hasFailures(results) {
			code = 1
		}
		return nil
	}

	if err := app.Run(args); err != nil {
		return 2
	}
	return code
}

func (h *harness) logf(format string, args ...any) {
	if h.log != nil {
		fmt.Fprintf(h.log, format+"\n", args...)
	}
}

// goldenPath is ".<name>.json" beside the source, or inside goldenDir.
func (h *harness) goldenPath(source string) string {
	name := "." + filepath.Base(source) + ".json"
	if h.goldenDir != "" {
		return filepath.Join(h.goldenDir, name)
	}
	return filepath.Join(filepath.Dir(source), name)
}

func (h *harness) generate(ctx context.Context, source string) (string, error) {
	sum, err := hashFile(source)
	if err != nil {
		return "", err
	}
	r := h.runScanner(ctx, h.scanner, source)
	if r.TimedOut {
		return "", fmt.Errorf("%s: scanner timed out", source)
	}
	data, err := json.MarshalIndent(golden{Hash: hashString(sum), Run: r}, "", "  ")
	if err != nil {
		return "", err
	}

	path := h.goldenPath(source)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0644)
}

// checkAll checks files on h.jobs workers. Files whose content repeats an
// earlier file are skipped. Results come back in the order of files.
func (h *harness) checkAll(ctx context.Context, files []string, skipped map[string]bool) []*Result {
	results := make([]*Result, len(files))
	var pending []int
	firstSeen := make(map[uint64]string)

	for i, file := range files {
		if skipped[file] || skipped[filepath.Base(file)] {
			results[i] = &Result{File: file, Status: Skip, Message: "explicitly skipped"}
			continue
		}
		sum, err := hashFile(file)
		if err != nil {
			results[i] = &Result{File: file, Status: Errored, Message: err.Error()}
			continue
		}
		if first, dup := firstSeen[sum]; dup {
			results[i] = &Result{File: file, Hash: hashString(sum), Status: Skip, Message: "content is identical to " + first}
			continue
		}
		firstSeen[sum] = file
		results[i] = &Result{File: file, Hash: hashString(sum)}
		pending = append(pending, i)
	}

	work := make(chan *Result)
	var wg sync.WaitGroup
	for range max(h.jobs, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range work {
				h.check(ctx, r)
			}
		}()
	}
	for _, i := range pending {
		work <- results[i]
	}
	close(work)
	wg.Wait()
	return results
}

func (h *harness) check(ctx context.Context, r *Result) {
	got := h.runScanner(ctx, h.scanner, r.File)
	r.Got = &got

	want, against, err := h.expected(ctx, r)
	switch {
	case err != nil:
		r.Status, r.Message = Errored, err.Error()
	case want == nil:
		r.Status, r.Message = Skip, "no reference scanner and no golden file"
	default:
		r.Want = want
		h.compare(r, against)
	}
}

// expected runs the reference scanner, or else loads the golden file. Both
// missing yields a nil Run and no error.
func (h *harness) expected(ctx context.Context, r *Result) (*Run, string, error) {
	if len(h.reference) > 0 {
		ref := h.runScanner(ctx, h.reference, r.File)
		return &ref, "reference scanner", nil
	}

	path := h.goldenPath(r.File)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	var g golden
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, "", fmt.Errorf("parsing golden file %s: %w", path, err)
	}
	if g.Hash != r.Hash {
		h.logf("%s: source changed since %s was written", r.File, path)
	}
	return &g.Run, "golden file", nil
}

func (h *harness) compare(r *Result, against string) {
	if r.Got.TimedOut {
		r.Status, r.Message = Fail, "scanner timed out"
		return
	}

	var diff strings.Builder
	if r.Want.ExitCode != r.Got.ExitCode {
		fmt.Fprintf(&diff, "exit code: want %d, got %d\n", r.Want.ExitCode, r.Got.ExitCode)
	}
	if d := cmp.Diff(listing(r.Want.Stdout, h.ignore), listing(r.Got.Stdout, h.ignore)); d != "" {
		fmt.Fprintf(&diff, "listing (-%s +scanner):\n%s", against, d)
	}
	if diff.Len() == 0 {
		r.Status, r.Message = Pass, "listing matches "+against
		return
	}
	r.Status, r.Message, r.Diff = Fail, "listing differs from "+against, diff.String()
}

// listing splits scanner output into comparable lines: trailing blanks and
// CRs are dropped, as are lines containing an ignored substring.
func listing(out string, ignore []string) []string {
	lines := []string{}
	for _, line := range strings.Split(strings.TrimRight(out, "\r\n"), "\n") {
		line = strings.TrimRight(line, " \t\r")
		if !slices.ContainsFunc(ignore, func(sub string) bool { return sub != "" && strings.Contains(line, sub) }) {
			lines = append(lines, line)
		}
	}
	return lines
}

func (h *harness) runScanner(ctx context.Context, command []string, source string) Run {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command[0], append(slices.Clone(command[1:]), source)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	r := Run{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.TimedOut, r.ExitCode = true, -1
	case errors.As(err, &exitErr):
		r.ExitCode = exitErr.ExitCode()
	case err != nil:
		r.ExitCode = -2
		r.Stderr += "\nexec: " + err.Error()
	}
	return r
}

func hashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}

func hashString(sum uint64) string { return fmt.Sprintf("%016x", sum) }

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

var statusColor = map[Status]string{Pass: cGreen, Fail: cRed, Skip: cYellow, Errored: cRed}

func printSummary(w io.Writer, results []*Result, color, verbose bool) {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + cNone
	}

	counts := make(map[Status]int)
	rule := strings.Repeat("-", 70)
	for _, r := range results {
		counts[r.Status]++
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%s\n  [%s] %s\n", paint(cCyan, r.File), paint(statusColor[r.Status], string(r.Status)), r.Message)
		for _, line := range strings.Split(strings.TrimRight(r.Diff, "\n"), "\n") {
			switch {
			case line == "":
			case strings.HasPrefix(strings.TrimSpace(line), "-"):
				fmt.Fprintln(w, "    "+paint(cRed, line))
			case strings.HasPrefix(strings.TrimSpace(line), "+"):
				fmt.Fprintln(w, "    "+paint(cGreen, line))
			default:
				fmt.Fprintln(w, "    "+line)
			}
		}
		if verbose && r.Got != nil {
			fmt.Fprintf(w, "  scanner: %v", r.Got.Duration.Round(time.Microsecond))
			if r.Want != nil && r.Want.Duration > 0 {
				fmt.Fprintf(w, " | expected: %v", r.Want.Duration.Round(time.Microsecond))
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s %s, %s, %s, %s, %d Total\n", paint(cBold, "Test Summary:"),
		paint(cGreen, fmt.Sprintf("%d Passed", counts[Pass])),
		paint(cRed, fmt.Sprintf("%d Failed", counts[Fail])),
		paint(cYellow, fmt.Sprintf("%d Skipped", counts[Skip])),
		paint(cRed, fmt.Sprintf("%d Errored", counts[Errored])),
		len(results))
}

func writeReport(path string, results []*Result) error {
	byFile := make(map[string]*Result, len(results))
	for _, r := range results {
		byFile[r.File] = r
	}
	data, err := json.MarshalIndent(byFile, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func hasFailures(results []*Result) bool {
	return slices.ContainsFunc(results, func(r *Result) bool { return r.Status == Fail || r.Status == Errored })
}

// expandGlobPatterns returns the regular files matching any pattern, as
// sorted absolute paths without duplicates.
func expandGlobPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil || seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				seen[abs] = true
				files = append(files, abs)
			}
		}
	}
	slices.Sort(files)
	return files, nil
}
