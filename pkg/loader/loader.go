// Package loader resolves and reads the source files the INCLUDE and
// IMPORT opcodes pull in, behind a filesystem trait so the VM core
// never touches the OS directly (spec.md §9 design note).
package loader

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// PackageEntryFile is the file an IMPORT "name" resolves to inside its
// package directory.
const PackageEntryFile = "__MAIN__.rose"

// Loader resolves INCLUDE/IMPORT targets to filesystem paths and reads
// their source text through an afero.Fs, so tests can substitute an
// in-memory filesystem instead of touching disk.
type Loader struct {
	Fs afero.Fs
}

// New returns a Loader reading from fs.
func New(fs afero.Fs) *Loader { return &Loader{Fs: fs} }

// ResolveInclude returns the path an `include "path"` statement issued
// from a source file in scriptDir should read (spec.md §4.6 INCLUDE:
// "resolve relative to the current source's directory").
func (l *Loader) ResolveInclude(scriptDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(scriptDir, path)
}

// ResolveImport returns the path an `import "name"` statement resolves
// to: the package's entry file under <exeDir>/packages/<name>/
// (spec.md §4.6 IMPORT).
func (l *Loader) ResolveImport(exeDir, name string) string {
	return filepath.Join(exeDir, "packages", name, PackageEntryFile)
}

// Read loads the source text at path. A read failure is always
// reported as a *NotFoundError so callers can distinguish it from a
// compile error (spec.md §7: missing source during include/import is
// fatal, not a recoverable runtime error).
func (l *Loader) Read(path string) (string, error) {
	data, err := afero.ReadFile(l.Fs, path)
	if err != nil {
		return "", &NotFoundError{Path: path, Err: err}
	}
	return string(data), nil
}

// NotFoundError wraps a failed source read with the path that failed,
// for the driver's fatal I/O exit path (exit code 74).
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return errors.Wrapf(e.Err, "could not read %s", e.Path).Error()
}

func (e *NotFoundError) Unwrap() error { return e.Err }
