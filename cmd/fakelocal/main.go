// Package main implements fakelocal, a stand-in for a local model program.
// It reads the prompt file given by --in and writes "[LOCAL FAKE]\n" followed
// by the prompt to --out. Use it with the local adapter in file output mode:
//
//	command_template: "fakelocal --in ${PROMPT_PATH} --out ${OUT_PATH}"
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// Prefix precedes the prompt in the output file.
const Prefix = "[LOCAL FAKE]\n"

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "fakelocal: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, output io.Writer) error {
	fs := pflag.NewFlagSet("fakelocal", pflag.ContinueOnError)
	fs.SetOutput(output)
	in := fs.String("in", "", "path to the input prompt file (required)")
	out := fs.String("out", "", "path to write the output file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("--in and --out are required")
	}

	prompt, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("failed to read prompt: %w", err)
	}
	if err := os.WriteFile(*out, append([]byte(Prefix), prompt...), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
