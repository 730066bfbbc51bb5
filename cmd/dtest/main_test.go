package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/decaf-lang/dscan/pkg/display"
	"github.com/decaf-lang/dscan/pkg/lexer"
)

// TestHelperScanner is the scanner under test when re-executed by
// helperScanner: it prints the listing of the file named last on its
// command line.
func TestHelperScanner(t *testing.T) {
	if os.Getenv("DTEST_HELPER_SCANNER") != "1" {
		t.Skip("only runs as a child process")
	}
	src, err := os.ReadFile(os.Args[len(os.Args)-1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
	if _, err := display.Write(os.Stdout, lexer.Scan(string(src), nil)); err != nil {
		os.Exit(3)
	}
	os.Exit(0)
}

func helperScanner(t *testing.T) []string {
	t.Setenv("DTEST_HELPER_SCANNER", "1")
	return []string{os.Args[0], "-test.run=^TestHelperScanner$", "--"}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func statuses(results []*Result) []Status {
	var got []Status
	for _, r := range results {
		got = append(got, r.Status)
	}
	return got
}

func TestListing(t *testing.T) {
	out := "a     line 1 Cols 1 - 1  is  'T_IDENTIFIER'  \r\ndscan: info: x\n\n"
	got := listing(out, []string{"dscan: info:"})
	want := []string{"a     line 1 Cols 1 - 1  is  'T_IDENTIFIER'"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
	if got := listing("", nil); len(got) != 1 || got[0] != "" {
		t.Errorf("empty output: %q", got)
	}
}

func TestCompare(t *testing.T) {
	h := &harness{}
	line := "x     line 1 Cols 1 - 1  is  'T_IDENTIFIER'\n"

	r := &Result{Want: &Run{Stdout: line}, Got: &Run{Stdout: strings.ReplaceAll(line, "\n", "\r\n")}}
	h.compare(r, "golden file")
	if r.Status != Pass {
		t.Errorf("expected PASS, got %s: %s", r.Status, r.Diff)
	}

	r = &Result{Want: &Run{Stdout: line}, Got: &Run{Stdout: strings.Replace(line, "x", "y", 1), ExitCode: 1}}
	h.compare(r, "golden file")
	if r.Status != Fail {
		t.Fatalf("expected FAIL, got %s", r.Status)
	}
	if !strings.Contains(r.Diff, "exit code: want 0, got 1") || !strings.Contains(r.Diff, "listing (-golden file +scanner)") {
		t.Errorf("unexpected diff:\n%s", r.Diff)
	}

	r = &Result{Want: &Run{Stdout: line}, Got: &Run{TimedOut: true}}
	h.compare(r, "golden file")
	if r.Status != Fail || r.Message != "scanner timed out" {
		t.Errorf("timeout: %s %q", r.Status, r.Message)
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.decaf", "x = 1;")
	b := writeFile(t, dir, "b.decaf", "x = 1;")
	c := writeFile(t, dir, "c.decaf", "x = 2;")

	ha, err := hashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, _ := hashFile(b)
	hc, _ := hashFile(c)
	if ha != hb || ha == hc {
		t.Errorf("hashes a=%x b=%x c=%x", ha, hb, hc)
	}
	if len(hashString(ha)) != 16 {
		t.Errorf("hashString(%x) = %q", ha, hashString(ha))
	}
	if _, err := hashFile(filepath.Join(dir, "missing.decaf")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestExpandGlobPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.decaf", "")
	writeFile(t, dir, "a.decaf", "")
	writeFile(t, dir, "notes.txt", "")
	if err := os.Mkdir(filepath.Join(dir, "sub.decaf"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := expandGlobPatterns([]string{filepath.Join(dir, "*.decaf"), filepath.Join(dir, "a.*")})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.decaf"), filepath.Join(dir, "b.decaf")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	if _, err := expandGlobPatterns([]string{"["}); err == nil {
		t.Error("expected a bad pattern error")
	}
}

func TestGenerateThenCheck(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.decaf", "if (x >= 10) y = 1;\n")
	writeFile(t, dir, "b.decaf", "if (x >= 10) y = 1;\n")
	c := writeFile(t, dir, "c.decaf", "while (k) { Print(\"hi\"); }\n")
	files, err := expandGlobPatterns([]string{filepath.Join(dir, "*.decaf")})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	h := &harness{scanner: helperScanner(t), goldenDir: filepath.Join(dir, "golden"), timeout: time.Minute, jobs: 2}
	for _, f := range []string{a, c} {
		if _, err := h.generate(ctx, f); err != nil {
			t.Fatalf("generate %s: %v", f, err)
		}
	}

	results := h.checkAll(ctx, files, nil)
	if diff := cmp.Diff([]Status{Pass, Skip, Pass}, statuses(results)); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
	if results[1].Message != "content is identical to "+a {
		t.Errorf("duplicate message %q", results[1].Message)
	}

	path := h.goldenPath(c)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var g golden
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(g.Run.Stdout, "T_WHILE") {
		t.Fatalf("golden listing lacks T_WHILE:\n%s", g.Run.Stdout)
	}
	g.Run.Stdout = strings.Replace(g.Run.Stdout, "T_WHILE", "T_FOR", 1)
	data, _ = json.Marshal(g)
	writeFile(t, filepath.Dir(path), filepath.Base(path), string(data))

	results = h.checkAll(ctx, files, map[string]bool{"a.decaf": true})
	if diff := cmp.Diff([]Status{Skip, Skip, Fail}, statuses(results)); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
	if results[1].Message != "no reference scanner and no golden file" {
		t.Errorf("b.decaf: %q", results[1].Message)
	}
	if !strings.Contains(results[2].Diff, "T_FOR") || !strings.Contains(results[2].Diff, "T_WHILE") {
		t.Errorf("diff does not show the changed line:\n%s", results[2].Diff)
	}

	h.reference = helperScanner(t)
	results = h.checkAll(ctx, files, nil)
	if diff := cmp.Diff([]Status{Pass, Skip, Pass}, statuses(results)); diff != "" {
		t.Errorf("reference statuses mismatch (-want +got):\n%s", diff)
	}
	if results[2].Message != "listing matches reference scanner" {
		t.Errorf("c.decaf: %q", results[2].Message)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	results := []*Result{{File: "a.decaf", Status: Pass}, {File: "b.decaf", Status: Fail, Diff: "-x\n+y\n"}}
	if err := writeReport(path, results); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]*Result
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["b.decaf"] == nil || got["b.decaf"].Status != Fail {
		t.Errorf("report: %s", data)
	}
	if !hasFailures(results) || hasFailures(results[:1]) {
		t.Error("hasFailures disagrees with the statuses")
	}

	var out bytes.Buffer
	printSummary(&out, results, false, false)
	if !strings.Contains(out.String(), "1 Passed, 1 Failed, 0 Skipped, 0 Errored, 2 Total") {
		t.Errorf("summary:\n%s", out.String())
	}
}

func TestRunOptions(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--jobs", "many"}, &stdout, &stderr); code != 2 {
		t.Errorf("bad --jobs: exit code %d", code)
	}
	if !strings.Contains(stderr.String(), "invalid integer 'many'") {
		t.Errorf("stderr: %q", stderr.String())
	}

	stdout.Reset()
	if code := run([]string{filepath.Join(t.TempDir(), "*.decaf")}, &stdout, &stderr); code != 0 {
		t.Errorf("no files: exit code %d", code)
	}
	if !strings.Contains(stdout.String(), "No test files found") {
		t.Errorf("stdout: %q", stdout.String())
	}
}
