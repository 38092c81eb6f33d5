package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"reify/internal/asm"
	"reify/internal/bc"
	"reify/internal/diag"
	"reify/internal/marker"
)

var scanCmd = &cobra.Command{
	Use:   "scan <file.rasm>...",
	Short: "List the reified operation markers of assembly files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().String("format", "text", "output format (text|json)")
	scanCmd.Flags().StringSlice("kind", nil, "only list operation markers of these kinds (e.g. AS,TYPE_OF)")
}

type siteRecord struct {
	File     string `json:"file"`
	Method   string `json:"method"`
	Index    int    `json:"index"`
	Kind     string `json:"kind"`
	Argument string `json:"argument,omitempty"`
	Decoded  bool   `json:"decoded"`
}

func runScan(cmd *cobra.Command, files []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}
	kinds, err := readKinds(cmd)
	if err != nil {
		return err
	}

	bag := diag.NewBag(1024)
	var records []siteRecord
	for _, file := range files {
		methods, err := asm.ParseFile(file)
		if err != nil {
			var list asm.ErrorList
			if !errors.As(err, &list) {
				return err
			}
			list.Report(diag.BagReporter{Bag: bag})
		}
		for _, m := range methods {
			for _, rec := range scanMethod(file, m, bag) {
				if kinds == nil || kinds[rec.Kind] {
					records = append(records, rec)
				}
			}
		}
	}

	if format == "json" {
		if records == nil {
			records = []siteRecord{}
		}
		if err := writeJSON(cmd.OutOrStdout(), records); err != nil {
			return err
		}
	} else {
		printSites(cmd.OutOrStdout(), records)
	}
	printDiagnostics(cmd.ErrOrStderr(), bag, false)
	if bag.HasErrors() {
		return errors.New("scan: malformed assembly")
	}
	return nil
}

// readKinds returns the --kind filter keyed by canonical kind name, or nil
// when every marker is listed.
func readKinds(cmd *cobra.Command) (map[string]bool, error) {
	names, err := cmd.Flags().GetStringSlice("kind")
	if err != nil || len(names) == 0 {
		return nil, err
	}
	kinds := make(map[string]bool, len(names))
	for _, name := range names {
		kind, ok := marker.ParseOperationKind(strings.ToUpper(strings.TrimSpace(name)))
		if !ok {
			return nil, fmt.Errorf("unknown marker kind %q", name)
		}
		kinds[kind.String()] = true
	}
	return kinds, nil
}

func scanMethod(file string, m *bc.Method, bag *diag.Bag) []siteRecord {
	var out []siteRecord
	r := diag.BagReporter{Bag: bag}
	for _, site := range marker.Scan(m.Code) {
		rec := siteRecord{File: file, Method: m.QualifiedName(), Index: site.Index, Decoded: site.Decoded}
		switch {
		case site.NeedClassReification:
			rec.Kind = "needClassReification"
			rec.Decoded = true
			diag.ReportInfo(r, diag.MrkClassReification, diag.At(file, rec.Method, site.Index),
				"body needs the enclosing class to be reified").Emit()
		case site.Decoded:
			rec.Kind = site.Kind.String()
			rec.Argument = site.Argument.String()
		default:
			rec.Kind = "?"
			diag.ReportWarning(r, diag.MrkUndecodable, diag.At(file, rec.Method, site.Index),
				"marker call is not preceded by a kind and an argument").Emit()
		}
		out = append(out, rec)
	}
	return out
}

func printSites(out io.Writer, records []siteRecord) {
	for _, rec := range records {
		fmt.Fprintf(out, "%s %s#%d %s", rec.File, rec.Method, rec.Index, rec.Kind)
		if rec.Argument != "" {
			fmt.Fprintf(out, " %q", rec.Argument)
		}
		fmt.Fprintln(out)
	}
}
