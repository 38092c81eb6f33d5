package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reify/internal/asm"
	"reify/internal/diag"
	"reify/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check <file.rasm>...",
	Short: "Validate labels, descriptors and stack depths of assembly files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, files []string) error {
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	bag := diag.NewBag(maxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}
	checked := 0
	for _, file := range files {
		methods, err := asm.ParseFile(file)
		if err != nil {
			var list asm.ErrorList
			if !errors.As(err, &list) {
				return err
			}
			list.Report(reporter)
		}
		for _, m := range methods {
			driver.CheckMethod(file, m, reporter)
			checked++
		}
	}
	printDiagnostics(cmd.ErrOrStderr(), bag, false)
	if bag.HasErrors() {
		return fmt.Errorf("check: %d method(s) checked, errors found", checked)
	}
	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "%d method(s) ok\n", checked)
	}
	return nil
}
