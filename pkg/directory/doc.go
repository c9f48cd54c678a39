// Package directory talks to the mail-administration API: mailbox
// enumeration, per-mailbox and per-folder usage statistics, and database
// quota thresholds.
package directory
