package cli

import "errors"

// ErrUsage marks command-line misuse: an unknown flag, a missing --manifest,
// or an unsupported output format. cmd/docspec exits with status 2 when the
// returned error matches it, so build scripts can tell bad invocations from
// failed generation passes.
var ErrUsage = errors.New("usage error")

// usageError carries the full message (often including the command's usage
// text) while still matching ErrUsage through errors.Is.
type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string { return e.msg }

func (e usageError) Is(target error) bool { return target == ErrUsage }
