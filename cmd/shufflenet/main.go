// Package main provides the shufflenet CLI.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

const version = "v0.3.0"

const usage = `Usage: shufflenet <command> [flags]

Commands:
  version    Show version
  summary    Print the stage plan and parameter counts
  infer      Run the model on a random or constant input
  init       Write freshly initialized weights to a .born or .safetensors file
  export     Export the model as ONNX
  inspect    Describe a .born, .safetensors or .onnx file

Run "shufflenet <command> -h" for command flags.
`

type command func(args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"version": runVersion,
	"summary": runSummary,
	"infer":   runInfer,
	"init":    runInit,
	"export":  runExport,
	"inspect": runInspect,
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "shufflenet: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd(args[1:], stdout, stderr)
}
