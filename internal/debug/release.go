//go:build !ballastdebug

// Package debug holds the contract assertions of the solver.
// They are compiled in with the ballastdebug build tag only. The arguments of Assert are
// evaluated in every build, so checks that call into other code sit behind Enabled.
package debug

const Enabled = false

func Assert(cond bool, format string, args ...any) {}
