// Package arinc665 provides the small set of types shared across every
// other package in this module: the injectable warning logger and the
// supplement-version enum used to pick which binary layout to read or
// write.
package arinc665

import "github.com/tvogt/arinc665/files"

// Logger receives non-fatal warnings from the decompiler and compiler.
// A nil Logger is a silent no-op, matching the zero-value-usable shape
// of every other optional field in this module's configuration structs.
type Logger func(format string, args ...any)

// Log calls l if non-nil; safe to call on a nil Logger.
func (l Logger) Log(format string, args ...any) {
	if l != nil {
		l(format, args...)
	}
}

// SupportedArinc665Version selects which ARINC 665 supplement the
// compiler emits or the decompiler expects. It is an alias of
// files.Version so every package shares one enum.
type SupportedArinc665Version = files.Version

const (
	Supplement2   = files.Supplement2
	Supplement345 = files.Supplement345
)
