package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reify/internal/asm"
	"reify/internal/diag"
	"reify/internal/driver"
	"reify/internal/observ"
	"reify/internal/unit"
)

var runCmd = &cobra.Command{
	Use:   "run <unit.toml|unit.yaml>",
	Short: "Rewrite the reified markers of a unit's method bodies",
	Long: `Load an inlining unit, bind its type parameters and rewrite every reified
operation marker of its assembly sources. The rewritten assembly is printed to
stdout (or -o), diagnostics and the propagated usages to stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runUnit,
}

func init() {
	runCmd.Flags().String("format", "text", "output format (text|json)")
	runCmd.Flags().Bool("strict", false, "fail when a marker cannot be rewritten")
	runCmd.Flags().Bool("unified-null-checks", false, "throw NullPointerException from failed non-null casts")
	runCmd.Flags().Int("jobs", 0, "max parallel methods (0=auto)")
	runCmd.Flags().Bool("no-cache", false, "disable the on-disk result cache")
	runCmd.Flags().String("ui", "auto", "progress UI mode (auto|on|off)")
	runCmd.Flags().StringP("output", "o", "", "write the rewritten assembly to this file")
}

type runPayload struct {
	Unit        string           `json:"unit"`
	Cached      bool             `json:"cached"`
	Summary     driver.Summary   `json:"summary"`
	Usages      []string         `json:"usages"`
	BodyUsages  []string         `json:"body_usages"`
	Files       []filePayload    `json:"files"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
	Timings     *observ.Report   `json:"timings,omitempty"`
}

type filePayload struct {
	Path     string `json:"path"`
	Assembly string `json:"assembly"`
}

func runUnit(cmd *cobra.Command, args []string) (err error) {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer func() { cleanup(err != nil) }()
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}
	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}
	unified, err := cmd.Flags().GetBool("unified-null-checks")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	u, err := unit.Load(args[0])
	if err != nil {
		var ue *unit.Error
		if errors.As(err, &ue) {
			bag := diag.NewBag(1)
			bag.Add(ue.Diagnostic())
			printDiagnostics(stderr, bag, false)
		}
		return err
	}

	opts := driver.Options{
		Jobs:              jobs,
		Strict:            strict,
		UnifiedNullChecks: unified,
		MaxDiagnostics:    maxDiagnostics,
		Timings:           showTimings && format == "json",
	}
	if !noCache {
		cache, cacheErr := driver.OpenDiskCache("reify")
		if cacheErr != nil {
			fmt.Fprintf(stderr, "cache disabled: %v\n", cacheErr)
		} else {
			opts.Cache = cache
		}
	}

	var res *driver.Result
	if format == "text" && !quiet(cmd) && shouldUseTUI(mode, outputPath != "") {
		title := u.Manifest.Name
		if title == "" {
			title = u.Path
		}
		res, err = runWithUI(cmd.Context(), "reify "+title, u, opts)
	} else {
		res, err = driver.Run(cmd.Context(), u, opts)
	}
	if res == nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputPath != "" && format == "text" {
		f, createErr := os.Create(outputPath)
		if createErr != nil {
			return errors.Join(err, createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		out = f
	}

	if format == "json" {
		payload, payloadErr := buildRunPayload(u, res, showTimings)
		if payloadErr != nil {
			return errors.Join(err, payloadErr)
		}
		if writeErr := writeJSON(out, payload); writeErr != nil {
			return errors.Join(err, writeErr)
		}
		return err
	}

	if writeErr := writeAssembly(out, res); writeErr != nil {
		return errors.Join(err, writeErr)
	}
	printDiagnostics(stderr, res.Bag, false)
	if !quiet(cmd) {
		printRunSummary(stderr, res)
	}
	if showTimings {
		printTimings(stderr, res.Timing)
	}
	return err
}

func buildRunPayload(u *unit.Unit, res *driver.Result, withTimings bool) (*runPayload, error) {
	payload := &runPayload{
		Unit:        u.Path,
		Cached:      res.Cached,
		Summary:     res.Summary(),
		Usages:      res.Usages.Names(),
		BodyUsages:  res.BodyUsages.Names(),
		Diagnostics: toJSONDiagnostics(res.Bag),
	}
	for _, file := range res.Files {
		var sb strings.Builder
		if err := asm.Format(&sb, res.MethodsIn(file)...); err != nil {
			return nil, err
		}
		payload.Files = append(payload.Files, filePayload{Path: file, Assembly: sb.String()})
	}
	if withTimings {
		report := res.Timing
		payload.Timings = &report
	}
	return payload, nil
}

func writeAssembly(out io.Writer, res *driver.Result) error {
	w := bufio.NewWriter(out)
	for i, file := range res.Files {
		methods := res.MethodsIn(file)
		if len(methods) == 0 {
			continue
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		if len(res.Files) > 1 {
			fmt.Fprintf(w, "# %s\n", file)
		}
		if err := asm.Format(w, methods...); err != nil {
			return err
		}
	}
	return w.Flush()
}

func printRunSummary(out io.Writer, res *driver.Result) {
	s := res.Summary()
	cached := ""
	if res.Cached {
		cached = " (cached)"
	}
	fmt.Fprintf(out, "%d methods: %d rewritten, %d partial, %d deferred, %d skipped, %d abandoned%s\n",
		s.Methods, s.Rewritten, s.Partial, s.Deferred, s.Skipped, s.Abandoned, cached)
	if res.Usages.WereUsed() {
		fmt.Fprintf(out, "usages: %s\n", strings.Join(res.Usages.Names(), ", "))
	}
}
