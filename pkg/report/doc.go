// Package report assembles mailbox usage records, computes quota status,
// and renders the result as a colorizable HTML table.
package report
