package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/telekom/mailbox-report/pkg/directory"
	"github.com/telekom/mailbox-report/pkg/mail"
	"github.com/telekom/mailbox-report/pkg/mbxreport/config"
	"github.com/telekom/mailbox-report/pkg/metrics"
	"github.com/telekom/mailbox-report/pkg/report"
)

const defaultSubject = "Mailbox Quota Report"

type reportOptions struct {
	all       bool
	server    string
	database  string
	file      string
	mailboxes []string

	sendEmail  bool
	mailFrom   string
	mailTo     []string
	mailServer string
	mailPort   int

	output      string
	interval    time.Duration
	metricsAddr string
}

func NewReportCommand() *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a mailbox quota usage report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return runReport(cmd.Context(), rt, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.all, "all", false, "Report on every mailbox")
	flags.StringVar(&opts.server, "server", "", "Report on all mailboxes of one mailbox server")
	flags.StringVar(&opts.database, "database", "", "Report on all mailboxes of one database")
	flags.StringVar(&opts.file, "file", "", "Report on the mailboxes listed in a file, one identity per line")
	flags.StringSliceVar(&opts.mailboxes, "mailbox", nil, "Report on a single mailbox (repeatable)")

	flags.BoolVar(&opts.sendEmail, "send-email", false, "Email the finished report")
	flags.StringVar(&opts.mailFrom, "mail-from", "", "Sender address (overrides config)")
	flags.StringSliceVar(&opts.mailTo, "mail-to", nil, "Recipient address (repeatable, overrides config)")
	flags.StringVar(&opts.mailServer, "mail-server", "", "SMTP host (overrides config)")
	flags.IntVar(&opts.mailPort, "mail-port", 0, "SMTP port (overrides config)")

	flags.StringVar(&opts.output, "output", "", "Write the report HTML to a file")
	flags.DurationVar(&opts.interval, "interval", 0, "Regenerate the report on this interval instead of running once")
	flags.StringVar(&opts.metricsAddr, "metrics-bind-address", "", "Serve Prometheus metrics on this address while running on an interval")

	cmd.MarkFlagsMutuallyExclusive("all", "server", "database", "file", "mailbox")
	cmd.MarkFlagsOneRequired("all", "server", "database", "file", "mailbox")

	return cmd
}

func runReport(ctx context.Context, rt *runtimeState, opts *reportOptions) error {
	log := rt.Logger()
	cfg := rt.cfg
	applyMailOverrides(opts, cfg)

	scope, err := buildScope(opts)
	if err != nil {
		return err
	}
	if err := scope.Validate(); err != nil {
		return err
	}

	if cfg.Directory.Server == "" {
		return errors.New("no admin API server configured (directory.server)")
	}
	dirOpts := []directory.Option{
		directory.WithServer(cfg.Directory.Server),
		directory.WithToken(cfg.Directory.ResolveToken()),
		directory.WithTimeout(cfg.Directory.ResolveTimeout(30 * time.Second)),
	}
	if cfg.Directory.CAFile != "" || cfg.Directory.InsecureSkipTLSVerify {
		dirOpts = append(dirOpts, directory.WithTLSConfig(cfg.Directory.CAFile, cfg.Directory.InsecureSkipTLSVerify))
	}
	dir, err := directory.NewClient(dirOpts...)
	if err != nil {
		return fmt.Errorf("directory client: %w", err)
	}

	var sender mail.Sender
	if opts.sendEmail {
		if cfg.Mail.Host == "" {
			return errors.New("--send-email requires an SMTP host (--mail-server or mail.host)")
		}
		if len(cfg.Mail.Recipients) == 0 {
			return errors.New("--send-email requires recipients (--mail-to or mail.recipients)")
		}
		sender = mail.NewSender(cfg.Mail, log)
	}

	if opts.interval <= 0 {
		return generate(ctx, rt, opts, scope, dir, sender)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.MetricsHandler())
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			log.Infow("Serving metrics", "addr", opts.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Infow("Running on interval", "interval", opts.interval)
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()
	for {
		if err := generate(ctx, rt, opts, scope, dir, sender); err != nil {
			// Keep the schedule alive; the next run may succeed.
			log.Errorw("Report run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			log.Info("Shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

func generate(ctx context.Context, rt *runtimeState, opts *reportOptions, scope directory.Scope, dir directory.Directory, sender mail.Sender) error {
	cfg := rt.cfg
	runID := uuid.New().String()
	log := rt.Logger().With("runID", runID)
	startedAt := time.Now()

	builder := report.NewBuilder(dir, cfg.Report.FolderScope, log)
	records, err := builder.Build(ctx, scope)
	if err != nil {
		return err
	}

	lines, err := report.RenderTable(records)
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	colored, err := report.ApplyRules(lines, cfg.Report.Rules)
	if err != nil {
		// Never ship a half-colored report; abort before any output is
		// written or mailed.
		return err
	}

	subject := subjectLine(cfg.Report.Subject, startedAt)
	page, err := report.RenderPage(report.PageParams{
		Title:        subject,
		RunID:        runID,
		GeneratedAt:  startedAt,
		MailboxCount: len(records),
	}, colored)
	if err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	metrics.ReportsGenerated.Inc()
	log.Infow("Report generated", "mailboxes", len(records), "duration", time.Since(startedAt))

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(page), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		log.Infow("Report written", "path", opts.output)
	}
	if sender != nil {
		if err := sender.Send(cfg.Mail.Recipients, subject, page); err != nil {
			return err
		}
	}
	if opts.output == "" && sender == nil {
		_, _ = fmt.Fprintln(rt.Writer(), page)
	}
	return nil
}

func subjectLine(prefix string, at time.Time) string {
	if prefix == "" {
		prefix = defaultSubject
	}
	return prefix + " " + at.Format("2006-01-02")
}

func applyMailOverrides(opts *reportOptions, cfg *config.Config) {
	if opts.mailServer != "" {
		cfg.Mail.Host = opts.mailServer
	}
	if opts.mailPort > 0 {
		cfg.Mail.Port = opts.mailPort
	}
	if opts.mailFrom != "" {
		cfg.Mail.SenderAddress = opts.mailFrom
	}
	if len(opts.mailTo) > 0 {
		cfg.Mail.Recipients = opts.mailTo
	}
}

// buildScope translates the mutually exclusive selection flags into a
// directory scope.
func buildScope(opts *reportOptions) (directory.Scope, error) {
	scope := directory.Scope{
		All:       opts.all,
		Server:    opts.server,
		Database:  opts.database,
		Mailboxes: opts.mailboxes,
	}
	if opts.file != "" {
		identities, err := readMailboxFile(opts.file)
		if err != nil {
			return directory.Scope{}, err
		}
		scope.Mailboxes = identities
	}
	return scope, nil
}

// readMailboxFile reads one mailbox identity per line; blank lines and
// #-comments are skipped.
func readMailboxFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mailbox file: %w", err)
	}
	var identities []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identities = append(identities, line)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("mailbox file %s contains no identities", path)
	}
	return identities, nil
}
