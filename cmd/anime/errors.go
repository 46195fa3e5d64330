// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package main

import "errors"

// Exit codes. exitCodeFor returns exitOK, exitInputError or
// exitRuntimeError; exitUsageError is declared but never returned, so flag
// parse failures and argument checks (missing --flows/--devices, bad --k,
// an existing --out without --override) exit with exitRuntimeError.
const (
	exitOK           = 0
	exitUsageError   = 1
	exitInputError   = 2
	exitRuntimeError = 3
)

// inputError marks a failure reading or parsing a taxonomy/flows file (or
// creating the output file), as opposed to every other error, which maps
// to exitRuntimeError.
type inputError struct{ err error }

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

func wrapInput(err error) error {
	if err == nil {
		return nil
	}
	return &inputError{err: err}
}

func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var ie *inputError
	if errors.As(err, &ie) {
		return exitInputError
	}
	return exitRuntimeError
}
