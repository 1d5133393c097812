package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hostgen/internal/cache"
	"hostgen/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show hostgen build information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("full", false, "include commit, build date, Go version and cache schema")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type versionPayload struct {
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	GitCommit   string `json:"git_commit,omitempty"`
	BuildDate   string `json:"build_date,omitempty"`
	GoVersion   string `json:"go_version,omitempty"`
	Modified    bool   `json:"modified,omitempty"`
	CacheSchema uint16 `json:"cache_schema,omitempty"`
}

func runVersion(cmd *cobra.Command, args []string) error {
	full, _ := cmd.Flags().GetBool("full")
	format, _ := cmd.Flags().GetString("format")

	info := version.Read()
	p := versionPayload{Tool: "hostgen", Version: info.Version}
	if full {
		p.GitCommit = orUnknown(info.GitCommit)
		p.BuildDate = orUnknown(info.BuildDate)
		p.GoVersion = orUnknown(info.GoVersion)
		p.Modified = info.Modified
		p.CacheSchema = cache.SchemaVersion
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "pretty":
		writeVersion(out, p, full)
		return nil
	}
	return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
}

func writeVersion(out io.Writer, p versionPayload, full bool) {
	fmt.Fprintf(out, "%s %s\n", p.Tool, version.Colored(colorOn()))
	if !full {
		return
	}
	commit := p.GitCommit
	if p.Modified {
		commit += " (modified)"
	}
	fmt.Fprintf(out, "commit: %s\n", commit)
	fmt.Fprintf(out, "built:  %s\n", p.BuildDate)
	fmt.Fprintf(out, "go:     %s\n", p.GoVersion)
	fmt.Fprintf(out, "cache:  schema %d\n", p.CacheSchema)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
