// Package registry persists the variant lookup table consumed by the host
// application's pipeline-alternative dispatch code.
//
// The output format is an external contract: each entry is one line of
// table-initializer text spliced verbatim into a C++ source file, so the
// byte layout must never drift.
package registry

import (
	"fmt"
	"os"
)

// Entry is one (variant name, artifact label set) registry record. The
// artifact label set holds the single logical label equal to the variant
// name; the underlying files are located via that name plus fixed
// suffixes, not enumerated here.
type Entry struct {
	Name string
}

// FormatEntry serializes an entry as one registry line, including the
// trailing comma and newline:
//
//	{"py2_4_8_8", {"py2_4_8_8"}},
//
// Kept separate from Writer so the text grammar can change without
// touching enumeration or stream handling.
func FormatEntry(e Entry) string {
	return fmt.Sprintf("{%q, {%q}},\n", e.Name, e.Name)
}

// Writer is the single owner of the registry stream for the lifetime of a
// run. The file is truncated and recreated on open; entries are appended
// in the order given, one Append per variant.
type Writer struct {
	file *os.File
	path string
}

// NewWriter creates (or truncates) the registry file at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", path, err)
	}
	return &Writer{file: f, path: path}, nil
}

// Append writes one entry line to the stream.
func (w *Writer) Append(e Entry) error {
	if _, err := w.file.WriteString(FormatEntry(e)); err != nil {
		return fmt.Errorf("append registry entry %s: %w", e.Name, err)
	}
	return nil
}

// Path returns the registry file location.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes and closes the stream. Safe to call once on every exit
// path; callers defer it immediately after NewWriter.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("close registry %s: %w", w.path, err)
	}
	return nil
}
