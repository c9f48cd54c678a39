package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Report metrics
	MailboxesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mbxreport_mailboxes_processed_total",
		Help: "Total number of mailboxes included in generated reports",
	}, []string{"database"})
	MailboxesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mbxreport_mailboxes_failed_total",
		Help: "Total number of mailboxes skipped because their statistics could not be retrieved",
	}, []string{"database"})
	ReportsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mbxreport_reports_generated_total",
		Help: "Total number of reports generated",
	})

	// Colorize metrics
	ColorizePasses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mbxreport_colorize_passes_total",
		Help: "Total number of colorize passes applied to rendered tables",
	})
	ColorizeRowsMatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mbxreport_colorize_rows_matched_total",
		Help: "Total number of table rows matched by colorize rules",
	}, []string{"property"})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mbxreport_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mbxreport_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})
)

func init() {
	prometheus.MustRegister(MailboxesProcessed)
	prometheus.MustRegister(MailboxesFailed)
	prometheus.MustRegister(ReportsGenerated)
	prometheus.MustRegister(ColorizePasses)
	prometheus.MustRegister(ColorizeRowsMatched)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics, used
// when the tool runs in scheduled mode with --metrics-bind-address set.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
