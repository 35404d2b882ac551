package main

import (
	"github.com/spf13/cobra"

	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

// exitError carries the exit code of a built-in command failure.
type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{err: err, code: output.ExitUsage}
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(check(cmd, args))
	}
}
