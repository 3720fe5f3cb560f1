// rtest runs the programs under tests/testcases through the compiler and
// checks their exit status, either in the emulator or as native binaries.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"tlog.app/go/errors"

	"github.com/xplshn/r9cc/pkg/cli"
	"github.com/xplshn/r9cc/pkg/compiler"
	"github.com/xplshn/r9cc/pkg/config"
)

type Execution struct {
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Native   bool          `json:"native,omitempty"`
	MaxDepth int           `json:"max_depth,omitempty"`
	Steps    int           `json:"steps,omitempty"`
	Unstable bool          `json:"unstable,omitempty"`
}

type CaseResult struct {
	Case     string        `json:"case"`
	Hash     string        `json:"hash"`
	Status   string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Want     int           `json:"want"`
	Compile  time.Duration `json:"compile"`
	Run      *Execution    `json:"run,omitempty"`
	Cached   bool          `json:"cached,omitempty"`
}

type SuiteResults map[string]*CaseResult

// testcase is one directory holding in, out and optionally asm.
type testcase struct {
	name string
	dir  string
	in   string
	out  int
	asm  string
	hash string
}

type options struct {
	dir      string
	skip     []string
	output   string
	timeout  time.Duration
	jobs     int
	runs     int
	native   bool
	useCache bool
	verbose  bool
	backend  string
	golden   string
}

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := cli.NewApp("rtest")
	app.Synopsis = "[options]"
	app.Description = "Compiles every test case and compares the program's exit status with the expected one."
	app.Stdout, app.Stderr = stdout, stderr

	opts := options{}
	var timeoutMS int
	fs := app.FlagSet
	fs.String(&opts.dir, "dir", "d", "tests/testcases", "Directory of test cases.", "dir")
	fs.List(&opts.skip, "skip", "s", "Skip the named case.", "case")
	fs.String(&opts.output, "output", "o", ".test_results.json", "Write the JSON report to <file>.", "file")
	fs.Int(&timeoutMS, "timeout", "t", 5000, "Per-case timeout in milliseconds.", "ms")
	fs.Int(&opts.jobs, "jobs", "j", runtime.NumCPU(), "Number of parallel jobs.", "n")
	fs.Int(&opts.runs, "runs", "n", 1, "Run each case <n> times and keep the fastest.", "n")
	fs.Bool(&opts.native, "native", "", false, "Assemble with cc and run the binaries instead of emulating.")
	fs.Bool(&opts.useCache, "cached", "c", false, "Reuse results of unchanged cases from the previous report.")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Print timings for each case.")
	fs.String(&opts.backend, "backend", "b", config.BackendX86, "Backend used when compiling natively.", "backend")
	fs.String(&opts.golden, "generate-golden", "g", "", "Write the asm golden file for <case> and exit.", "case")

	app.Action = func([]string) error {
		opts.timeout = time.Duration(timeoutMS) * time.Millisecond
		if opts.runs < 1 {
			opts.runs = 1
		}
		if opts.jobs < 1 {
			opts.jobs = 1
		}

		tempDir, err := os.MkdirTemp("", "rtest-*")
		if err != nil {
			return errors.Wrap(err, "create temp directory")
		}
		defer os.RemoveAll(tempDir)
		setupInterruptHandler(tempDir, stdout)

		if opts.golden != "" {
			return generateGolden(opts, stdout)
		}

		results, err := runSuite(opts, tempDir)
		if err != nil {
			return err
		}
		printSummary(stdout, results, opts.verbose)
		if err := writeJSONReport(opts.output, results); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Full test report saved to %s\n", opts.output)
		if hasFailures(results) {
			return errFailed
		}
		return nil
	}

	switch err := app.Run(args); err {
	case nil, cli.ErrHelp:
		return 0
	case errFailed:
		return 1
	default:
		fmt.Fprintf(stderr, "%s[ERROR]%s %v\n", cRed, cNone, err)
		return 1
	}
}

var errFailed = errors.New("test failures")

// setupInterruptHandler is used to clean up on CTRL+C
func setupInterruptHandler(tempDir string, w io.Writer) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Fprintf(w, "\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func hashSource(src string) string {
	return strconv.FormatUint(xxhash.Sum64String(src), 16)
}

func loadTestcases(dir string) ([]testcase, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read %v", dir)
	}
	var cases []testcase
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		tc, err := loadTestcase(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

func loadTestcase(dir string) (testcase, error) {
	tc := testcase{name: filepath.Base(dir), dir: dir}
	in, err := os.ReadFile(filepath.Join(dir, "in"))
	if err != nil {
		return tc, errors.Wrap(err, "case %v", tc.name)
	}
	out, err := os.ReadFile(filepath.Join(dir, "out"))
	if err != nil {
		return tc, errors.Wrap(err, "case %v", tc.name)
	}
	tc.out, err = strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return tc, errors.Wrap(err, "case %v: bad expected status", tc.name)
	}
	tc.in = strings.TrimRight(string(in), "\n")
	if asm, err := os.ReadFile(filepath.Join(dir, "asm")); err == nil {
		tc.asm = string(asm)
	}
	tc.hash = hashSource(tc.in)
	return tc, nil
}

func generateGolden(opts options, w io.Writer) error {
	tc, err := loadTestcase(filepath.Join(opts.dir, opts.golden))
	if err != nil {
		return err
	}
	res, err := compiler.Compile(context.Background(), tc.in, config.NewConfig())
	if err != nil {
		return errors.Wrap(err, "compile %v", tc.name)
	}
	path := filepath.Join(tc.dir, "asm")
	if err := os.WriteFile(path, []byte(compiler.Listing(res)), 0644); err != nil {
		return errors.Wrap(err, "write %v", path)
	}
	fmt.Fprintf(w, "%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, path)
	return nil
}

func loadPreviousResults(path string) SuiteResults {
	prev := make(SuiteResults)
	data, err := os.ReadFile(path)
	if err != nil {
		return prev
	}
	if json.Unmarshal(data, &prev) != nil {
		return make(SuiteResults)
	}
	return prev
}

func runSuite(opts options, tempDir string) ([]*CaseResult, error) {
	cases, err := loadTestcases(opts.dir)
	if err != nil {
		return nil, err
	}

	var previous SuiteResults
	if opts.useCache {
		previous = loadPreviousResults(opts.output)
	}

	skipList := make(map[string]bool)
	for _, s := range opts.skip {
		skipList[s] = true
	}

	tasks := make(chan testcase, len(cases))
	resultsChan := make(chan *CaseResult, len(cases))
	var wg sync.WaitGroup

	for i := 0; i < opts.jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tc := range tasks {
				resultsChan <- testCase(tc, opts, tempDir)
			}
		}()
	}

	// Feed the tasks channel, skipping cases with identical sources
	seenHashes := make(map[string]string)
	for _, tc := range cases {
		switch {
		case skipList[tc.name]:
			resultsChan <- &CaseResult{Case: tc.name, Hash: tc.hash, Status: "SKIP", Message: "Explicitly skipped", Want: tc.out}
			continue
		case seenHashes[tc.hash] != "":
			resultsChan <- &CaseResult{Case: tc.name, Hash: tc.hash, Status: "SKIP", Message: fmt.Sprintf("Source is identical to %s", seenHashes[tc.hash]), Want: tc.out}
			continue
		}
		seenHashes[tc.hash] = tc.name

		if prev, ok := previous[tc.name]; ok && prev.Hash == tc.hash && prev.Want == tc.out && prev.Status == "PASS" {
			cached := *prev
			cached.Cached = true
			resultsChan <- &cached
			continue
		}
		tasks <- tc
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var all []*CaseResult
	for r := range resultsChan {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Case < all[j].Case })
	return all, nil
}

func testCase(tc testcase, opts options, tempDir string) *CaseResult {
	res := &CaseResult{Case: tc.name, Hash: tc.hash, Want: tc.out}

	cfg := config.NewConfig()
	if opts.native {
		if err := cfg.SetBackend(opts.backend, runtime.GOOS, runtime.GOARCH, ""); err != nil {
			res.Status, res.Message = "ERROR", err.Error()
			return res
		}
	}

	start := time.Now()
	out, err := compiler.Compile(context.Background(), tc.in, cfg)
	res.Compile = time.Since(start)
	if err != nil {
		res.Status, res.Message = "FAIL", "Compilation failed"
		res.Diff = err.Error()
		return res
	}

	if tc.asm != "" && cfg.Backend == config.BackendX86 {
		if diff := cmp.Diff(tc.asm, compiler.Listing(out)); diff != "" {
			res.Status, res.Message = "FAIL", "Assembly differs from the golden file"
			res.Diff = diff
			return res
		}
	}

	var ex *Execution
	if opts.native {
		ex, err = runNative(out, opts, filepath.Join(tempDir, tc.hash))
	} else {
		ex, err = runEmulated(out, opts)
	}
	if err != nil {
		res.Status, res.Message = "ERROR", err.Error()
		return res
	}
	res.Run = ex

	switch {
	case ex.Unstable:
		res.Status, res.Message = "FAIL", "Exit status changes between runs"
	case ex.TimedOut:
		res.Status, res.Message = "FAIL", "Timed out"
	case ex.ExitCode != tc.out:
		res.Status, res.Message = "FAIL", "Exit status mismatch"
		res.Diff = fmt.Sprintf("  - Want: %d\n  + Got:  %d", tc.out, ex.ExitCode)
	default:
		res.Status, res.Message = "PASS", "Exit status matches"
	}
	return res
}

func runEmulated(out *compiler.Result, opts options) (*Execution, error) {
	var best *Execution
	for i := 0; i < opts.runs; i++ {
		start := time.Now()
		r, err := compiler.Emulate(context.Background(), out)
		if err != nil {
			return nil, err
		}
		e := &Execution{ExitCode: r.ExitCode, Duration: time.Since(start), MaxDepth: r.MaxDepth, Steps: r.Steps}
		if best == nil || e.Duration < best.Duration {
			best = e
		}
	}
	return best, nil
}

func runNative(out *compiler.Result, opts options, binaryPath string) (*Execution, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := compiler.AssembleAndLink(ctx, binaryPath, compiler.Listing(out), nil); err != nil {
		return nil, err
	}

	var best *Execution
	for i := 0; i < opts.runs; i++ {
		runCtx, runCancel := context.WithTimeout(context.Background(), opts.timeout)
		start := time.Now()
		code, err := compiler.RunExecutable(runCtx, binaryPath)
		e := &Execution{ExitCode: code, Duration: time.Since(start), Native: true}
		if runCtx.Err() == context.DeadlineExceeded {
			e.TimedOut, e.ExitCode = true, -1
		}
		runCancel()
		if err != nil && !e.TimedOut {
			return nil, err
		}
		if best != nil && best.ExitCode != e.ExitCode {
			best.Unstable = true
			return best, nil
		}
		if best == nil || e.Duration < best.Duration {
			best = e
		}
		if e.TimedOut {
			break
		}
	}
	return best, nil
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(w io.Writer, results []*CaseResult, verbose bool) {
	var passed, failed, skipped, errored int
	var totalCompile, totalRun time.Duration
	var timed int

	for _, r := range results {
		fmt.Fprintln(w, "----------------------------------------------------------------------")
		fmt.Fprintf(w, "Testing %s%s%s...\n", cCyan, r.Case, cNone)

		msg := r.Message
		if r.Cached {
			msg += " (cached)"
		}
		switch r.Status {
		case "PASS":
			passed++
			fmt.Fprintf(w, "  [%sPASS%s] %s\n", cGreen, cNone, msg)
		case "FAIL":
			failed++
			fmt.Fprintf(w, "  [%sFAIL%s] %s\n", cRed, cNone, msg)
			fmt.Fprint(w, formatDiff(r.Diff))
		case "SKIP":
			skipped++
			fmt.Fprintf(w, "  [%sSKIP%s] %s\n", cYellow, cNone, msg)
		case "ERROR":
			errored++
			fmt.Fprintf(w, "  [%sERROR%s] %s\n", cRed, cNone, msg)
		}

		if r.Run != nil && !r.Cached {
			timed++
			totalCompile += r.Compile
			totalRun += r.Run.Duration
			if verbose {
				fmt.Fprintf(w, "  [compile: %s | run: %s | depth: %d]\n", formatDuration(r.Compile), formatDuration(r.Run.Duration), r.Run.MaxDepth)
			}
		}
	}

	fmt.Fprintln(w, "----------------------------------------------------------------------")
	fmt.Fprintf(w, "%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))

	if timed > 0 {
		fmt.Fprintln(w, "---")
		fmt.Fprintf(w, "Average compile %s, average run %s over %d cases.\n",
			strings.TrimSpace(formatDuration(totalCompile/time.Duration(timed))),
			strings.TrimSpace(formatDuration(totalRun/time.Duration(timed))), timed)
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") {
			b.WriteString(cRed)
		} else if strings.HasPrefix(trimmed, "+") {
			b.WriteString(cGreen)
		}
		b.WriteString("    " + line)
		b.WriteString(cNone)
		b.WriteString("\n")
	}
	return b.String()
}

func writeJSONReport(path string, results []*CaseResult) error {
	m := make(SuiteResults, len(results))
	for _, r := range results {
		m[r.Case] = r
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "create %v", dir)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "write report %v", path)
	}
	return nil
}

func hasFailures(results []*CaseResult) bool {
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return true
		}
	}
	return false
}
