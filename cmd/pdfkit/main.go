// Command pdfkit is the command line for inspecting, validating,
// encrypting/decrypting and re-writing PDF documents with pdfkit.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mechiko/pdfkit/config"
)

var errUnknownCmd = errors.New("unknown command")

// cmdFunc runs a subcommand given the remaining (post-subcommand) CLI
// arguments. Each subcommand parses its own flag set independently
// rather than sharing one global flag.FlagSet.
type cmdFunc func(args []string) error

var commands = map[string]cmdFunc{
	"inspect":  cmdInspect,
	"validate": cmdValidate,
	"decrypt":  cmdDecrypt,
	"encrypt":  cmdEncrypt,
	"optimize": cmdOptimize,
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "pdfkit: %v: %s\n", errUnknownCmd, os.Args[1])
		usage()
		os.Exit(2)
	}

	if err := cmd(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "pdfkit: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pdfkit <inspect|validate|decrypt|encrypt|optimize> [flags] FILE ...")
}

func baseConfig() config.EngineConfig {
	return config.Default()
}

func openFile(path string) (*os.File, error) {
	return os.Open(path)
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}
