package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"reify/internal/version"
)

type versionPayload struct {
	Tool string `json:"tool"`
	version.Info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show reify build information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		full, err := cmd.Flags().GetBool("full")
		if err != nil {
			return err
		}
		info := version.Current()
		switch strings.ToLower(format) {
		case "json":
			if !full {
				info.GitCommit, info.BuildDate = "", ""
			}
			return writeJSON(cmd.OutOrStdout(), versionPayload{Tool: "reify", Info: info})
		case "pretty":
			renderVersionPretty(cmd.OutOrStdout(), info, full)
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().Bool("full", false, "include commit and build date")
}

func renderVersionPretty(out io.Writer, info version.Info, full bool) {
	fmt.Fprintf(out, "reify %s\n", version.Colored(info.Version))
	if full {
		fmt.Fprintf(out, "commit: %s\n", valueOrUnknown(info.GitCommit))
		fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(info.BuildDate))
	}
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
