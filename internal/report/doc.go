// Package report provides table output for crawl and places results.
//
// Both pipelines turn their results into a Table of ordered Records. The
// table can then be written by any Writer:
//   - XLSXWriter: the .xlsx spreadsheet both pipelines produce
//   - MarkdownWriter: an optional Markdown summary document
//   - SimpleWriter: human-readable text output for terminal display
//   - JSONWriter: structured JSON output for the history command
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
