package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// options are the parsed command-line flags.
type options struct {
	configPath string
	once       bool
	limit      *int
	dryRun     bool
	rescan     bool
	adapter    string
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	var limit int

	fs := pflag.NewFlagSet("prompttick", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: prompttick [flags]\n\n%s", fs.FlagUsages())
	}

	fs.StringVar(&opts.configPath, "config", "config.yaml", "path to the YAML configuration file")
	fs.BoolVar(&opts.once, "once", false, "run a single round and exit")
	fs.IntVar(&limit, "limit", 0, "process at most N files per round (capped by batch_size)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "list the files the next round would process and exit")
	fs.BoolVar(&opts.rescan, "rescan", false, "clear the processed set before running")
	fs.StringVar(&opts.adapter, "adapter", "", "override the configured adapter")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if fs.Changed("limit") {
		opts.limit = &limit
	}
	return opts, nil
}
