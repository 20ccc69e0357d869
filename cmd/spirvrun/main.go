package main

import (
	"fmt"
	"os"
)

// Exit codes per the CLI surface's contract: 0 OK, 1 INFO (help/version/
// template), 2 BAD_ARGS, 3 BAD_FILE, 4 BAD_PARSE, 5 BAD_PROGRAM,
// 6 BAD_PROG_INPUT, 7 FAILED_EXE, 8 BAD_COMPARE.
const (
	exitOK = iota
	exitInfo
	exitBadArgs
	exitBadFile
	exitBadParse
	exitBadProgram
	exitBadProgInput
	exitFailedExe
	exitBadCompare
)

// exitError carries the exit code a failure should map to, set by
// whichever stage of runSpirv produced it.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func main() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	if err := rootCmd.Execute(); err != nil {
		ee, ok := err.(*exitError)
		if !ok {
			fmt.Fprintf(os.Stderr, "spirvrun: %v\n", err)
			os.Exit(exitBadArgs)
		}
		if ee.code == exitInfo {
			fmt.Fprintln(os.Stdout, ee.err)
		} else {
			fmt.Fprintf(os.Stderr, "spirvrun: %v\n", ee.err)
		}
		os.Exit(ee.code)
	}
	// cobra answers -h/--help and -v/--version itself and returns nil; both
	// still end with the INFO exit code.
	if rootCmd.Flags().Changed("help") || rootCmd.Flags().Changed("version") {
		os.Exit(exitInfo)
	}
}
