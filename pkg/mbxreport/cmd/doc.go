// Package cmd implements the mbxreport command tree.
package cmd
