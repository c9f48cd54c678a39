// Package colorize rewrites rendered HTML table markup, adding inline
// background-color styles to cells or rows whose column value matches a
// declarative filter rule.
package colorize
