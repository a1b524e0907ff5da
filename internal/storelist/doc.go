// Package storelist reads the store spreadsheet that drives a crawl.
//
// The workbook is the output of the places command (or any sheet with the
// same headers): one row per store with at least a name column and a
// website column. Columns are located by header text, so extra columns and
// column order do not matter.
package storelist
