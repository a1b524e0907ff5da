package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// outputFilePermission is used for every file the writers create.
const outputFilePermission = 0o600

// outputDirPermission is used for missing parent directories.
const outputDirPermission = 0o750

// WriterFactory creates a Writer for an output destination.
type WriterFactory func(io.Writer) Writer

// XLSX is the WriterFactory of XLSXWriter.
func XLSX(w io.Writer) Writer { return NewXLSXWriter(w) }

// Markdown is the WriterFactory of MarkdownWriter with default options.
func Markdown(w io.Writer) Writer { return NewMarkdownWriter(w) }

// SaveFile writes the table to path with the writer created by newWriter.
// Parent directories are created when missing. The file is truncated if it
// exists.
func SaveFile(path string, newWriter WriterFactory, table *Table) (err error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, outputDirPermission); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if _, err := newWriter(f).Write(table); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
