// Command testrig runs a parser and interpreter against a directory of
// test bundles and reports which ones behave as expected.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/deixis/testrig"
	"github.com/deixis/testrig/internal/config"
	rigmcp "github.com/deixis/testrig/internal/mcp"
	"github.com/deixis/testrig/internal/remote"
	"github.com/deixis/testrig/internal/report"
	"github.com/deixis/testrig/internal/runner"
	"github.com/deixis/testrig/internal/workflow"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Exit statuses.
const (
	exitOK     = 0
	exitFailed = 1 // at least one bundle failed
	exitFatal  = 99
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("testrig: ")

	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the command line and maps its outcome to an exit status.
func run(args []string, stdout io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return exitOK
	}
	var failed *failedError
	if !errors.As(err, &failed) {
		log.Print(err)
	}
	return exitStatus(err)
}

func exitStatus(err error) int {
	var se interface{ ExitStatus() int }
	if errors.As(err, &se) {
		return se.ExitStatus()
	}
	return exitFatal
}

// failedError signals a completed run with failing bundles.
type failedError struct {
	summary report.Summary
}

func (e *failedError) Error() string {
	return fmt.Sprintf("%d of %d tests failed", e.summary.Failed, e.summary.Total)
}

func (e *failedError) ExitStatus() int { return exitFailed }

func badFlags(err error) error {
	return &config.ConfigError{Reason: err.Error(), Status: config.StatusBadFlags}
}

// storeDir holds run results for "testrig inspect" across invocations.
func storeDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "testrig", "runs")
	}
	return filepath.Join(os.TempDir(), "testrig-runs")
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		opts   config.Options
		format string
		output string
		ref    string
		store  string
	)

	cmd := &cobra.Command{
		Use:   "testrig",
		Short: "Run parser and interpreter test bundles",
		Long: `testrig discovers <name>.src bundles in a directory, runs the parser and/or the
interpreter on each one and compares exit codes (.rc) and output (.out) with
the expected values. Missing .rc, .in and .out files are created with
defaults for the duration of the run.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return badFlags(err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runTests(ctx, stdout, opts, format, output, ref, store)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return badFlags(err)
	})

	f := cmd.Flags()
	f.StringVarP(&opts.Directory, "directory", "d", ".", "tests root, or a git URL (git+https://...)")
	f.BoolVarP(&opts.Recursive, "recursive", "r", false, "also search subdirectories")
	f.StringVar(&opts.ParseScript, "parse-script", "", "parser executable (default \""+config.DefaultParser+"\")")
	f.StringVar(&opts.IntScript, "int-script", "", "interpreter executable (default \""+config.DefaultInterpreter+"\")")
	f.BoolVar(&opts.ParseOnly, "parse-only", false, "run only the parser")
	f.BoolVar(&opts.IntOnly, "int-only", false, "run only the interpreter, on the source files")
	f.BoolVar(&opts.NoCleanup, "no-cleanup", false, "keep synthesized .rc/.in/.out and produced .xml/.txt files")
	f.DurationVar(&opts.Timeout, "timeout", 0, "per-process timeout (overrides the config file)")
	f.StringVar(&format, "format", "", "report format: html, json or text (default from config, else html)")
	f.StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	f.StringVar(&ref, "ref", "", "branch, tag or commit when --directory is a git URL")
	cmd.PersistentFlags().StringVar(&store, "store", storeDir(), "directory keeping run results for inspect")

	cmd.AddCommand(newInspectCmd(stdout, &store))
	cmd.AddCommand(newMCPCmd(stdout, &store))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(stdout, testrig.Version)
		},
	})
	return cmd
}

func runTests(ctx context.Context, stdout io.Writer, opts config.Options, format, output, ref, store string) error {
	fetcher := &remote.Fetcher{Ref: ref}

	configDir := opts.Directory
	if fetcher.Match(configDir) {
		configDir = "."
	}
	loaded, err := config.Load(configDir)
	if err != nil {
		return badFlags(err)
	}
	if format == "" {
		format = loaded.Config.ReportFormat()
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return badFlags(err)
	}
	cfg, err := opts.Resolve(loaded.Config)
	if err != nil {
		return err
	}

	engine := &workflow.Engine{
		Runner:  &runner.Runner{Timeout: cfg.Timeout},
		Fetcher: fetcher,
	}
	result, err := engine.Run(ctx, cfg)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		log.Print(w)
	}

	if store != "" {
		if err := report.NewDiskStore(store).Save(result); err != nil {
			log.Printf("saving run: %v", err)
		}
	}

	w, color := stdout, isTerminal(stdout)
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating report: %w", err)
		}
		defer file.Close()
		w, color = file, false
	}
	if err := report.NewRenderer(f, color).Render(w, result); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	s := result.Summary()
	log.Printf("run %s: %d tests, %d passed, %d failed", result.ID, s.Total, s.Passed, s.Failed)
	if s.Failed > 0 {
		return &failedError{summary: s}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// --- inspect ---

func newInspectCmd(stdout io.Writer, store *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <run-id> [bundle]",
		Short: "Show the outcome of bundles from a stored run (failed ones by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := report.NewDiskStore(*store).Load(args[0])
			if err != nil {
				return err
			}
			var bundle string
			if len(args) == 2 {
				bundle = args[1]
			}
			selected := *result
			selected.Warnings = nil
			selected.Outcomes = report.Lookup(result, bundle)
			return report.NewRenderer(report.Text, isTerminal(stdout)).Render(stdout, &selected)
		},
	}
}

// --- mcp ---

func newMCPCmd(stdout io.Writer, store *string) *cobra.Command {
	var (
		instructions bool
		httpAddr     string
		timeout      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(stdout, rigmcp.Instructions)
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return serve(ctx, httpAddr, *store, timeout)
		},
	}
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	cmd.Flags().StringVar(&httpAddr, "http", "", "start HTTP server on address (e.g. :9090)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-process timeout (overrides the config file)")
	return cmd
}

func serve(ctx context.Context, httpAddr, runs string, timeout time.Duration) error {
	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store := report.NewLRUStore(5, report.NewDiskStore(runs))

	var opts []rigmcp.ServerOption
	if timeout > 0 {
		opts = append(opts, rigmcp.WithTimeout(timeout))
	}
	server := rigmcp.NewServer(loaded.Config, store, workspace, opts...)

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
