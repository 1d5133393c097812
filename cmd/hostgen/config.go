package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hostgen/internal/project"
)

// loadConfig finds the manifest and applies command line overrides on top.
func loadConfig(cmd *cobra.Command) (project.Config, error) {
	flags := cmd.Flags()
	start, err := flags.GetString("config")
	if err != nil {
		return project.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}

	var cfg project.Config
	switch {
	case start == "":
		wd, err := os.Getwd()
		if err != nil {
			return project.Config{}, err
		}
		cfg, _, err = project.LoadNearest(wd)
		if err != nil {
			return project.Config{}, err
		}
	default:
		st, err := os.Stat(start)
		if err != nil {
			return project.Config{}, err
		}
		if st.IsDir() {
			cfg, _, err = project.LoadNearest(start)
		} else {
			cfg, err = project.LoadConfig(start)
		}
		if err != nil {
			return project.Config{}, err
		}
	}

	if flags.Changed("mode") {
		cfg.Session.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("jobs") {
		cfg.Session.Jobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("fatal-threshold") {
		cfg.Session.FatalThreshold, _ = flags.GetInt("fatal-threshold")
	}
	if flags.Changed("max-diagnostics") {
		cfg.Session.MaxDiagnostics, _ = flags.GetInt("max-diagnostics")
	}
	// paths given on the command line are relative to the working directory
	if flags.Changed("snapshot") {
		p, _ := flags.GetString("snapshot")
		if cfg.Metadata.Snapshot, err = filepath.Abs(p); err != nil {
			return project.Config{}, err
		}
	}
	if flags.Changed("tree-dir") {
		p, _ := flags.GetString("tree-dir")
		if cfg.Modules.TreeDir, err = filepath.Abs(p); err != nil {
			return project.Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return project.Config{}, err
	}
	return cfg, nil
}

func rootsFor(cfg project.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(cfg.Modules.Roots) == 0 {
		return nil, project.ErrNoRoots
	}
	return cfg.Modules.Roots, nil
}
