package report

import "io"

// Writer renders a Table. Write returns the number of bytes written.
type Writer interface {
	Write(table *Table) (int, error)
}

// baseWriter holds the destination shared by the text based writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
