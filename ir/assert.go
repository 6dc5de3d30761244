package ir

import (
	"path/filepath"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

// assert panics when a caller breaks a documented precondition.
// The panic value is an error carrying the location of the failed check.
func assert(cond bool, format string, args ...any) {
	if cond {
		return
	}

	_, file, line := loc.Caller(1).NameFileLine()

	panic(errors.New("ir: %s:%d: %s", filepath.Base(file), line, errors.New(format, args...)))
}
