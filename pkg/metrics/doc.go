// Package metrics defines Prometheus metrics for the report tool, covering
// mailbox processing, colorize passes, and mail delivery.
package metrics
