package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/telekom/mailbox-report/pkg/directory"
	"github.com/telekom/mailbox-report/pkg/metrics"
)

// QuotaStatus is the quota tier a mailbox has reached.
type QuotaStatus int

const (
	StatusOK QuotaStatus = iota
	StatusWarning
	StatusProhibitSend
	StatusProhibitSendReceive
)

// Record is one row of the mailbox usage table. Column headers of the
// rendered table are derived from these fields; color rules reference them
// by header name.
type Record struct {
	DisplayName         string
	ServerName          string
	Database            string
	TotalSizeMB         float64
	DeletedSizeMB       float64
	ItemCount           int64
	LastLogon           string
	DumpsterSizeMB      float64
	WarnQuotaMB         string
	ProhibitSendQuotaMB string
	Status              QuotaStatus
}

// ComputeStatus maps a mailbox size onto the database quota tiers. Absent
// tiers are unlimited and never trigger.
func ComputeStatus(totalSize int64, quotas *directory.DatabaseQuotas) QuotaStatus {
	status := StatusOK
	if quotas == nil {
		return status
	}
	if quotas.Warn != nil && totalSize >= *quotas.Warn {
		status = StatusWarning
	}
	if quotas.ProhibitSend != nil && totalSize >= *quotas.ProhibitSend {
		status = StatusProhibitSend
	}
	if quotas.ProhibitSendReceive != nil && totalSize >= *quotas.ProhibitSendReceive {
		status = StatusProhibitSendReceive
	}
	return status
}

// Builder walks a mailbox scope and assembles report records. Database
// quotas are fetched once per database and cached for the run.
type Builder struct {
	dir         directory.Directory
	folderScope string
	log         *zap.SugaredLogger

	quotaCache map[string]*directory.DatabaseQuotas
}

func NewBuilder(dir directory.Directory, folderScope string, log *zap.SugaredLogger) *Builder {
	return &Builder{
		dir:         dir,
		folderScope: folderScope,
		log:         log.Named("report"),
		quotaCache:  map[string]*directory.DatabaseQuotas{},
	}
}

// Build produces one record per mailbox in scope. A mailbox whose
// statistics cannot be retrieved is logged and skipped rather than failing
// the whole report.
func (b *Builder) Build(ctx context.Context, scope directory.Scope) ([]Record, error) {
	refs, err := b.dir.ListMailboxes(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}
	b.log.Infow("Building report", "mailboxes", len(refs))

	records := make([]Record, 0, len(refs))
	for _, ref := range refs {
		record, err := b.buildRecord(ctx, ref)
		if err != nil {
			b.log.Warnw("Skipping mailbox", "mailbox", ref.ID, "database", ref.Database, "error", err)
			metrics.MailboxesFailed.WithLabelValues(ref.Database).Inc()
			continue
		}
		metrics.MailboxesProcessed.WithLabelValues(ref.Database).Inc()
		records = append(records, *record)
	}
	return records, nil
}

func (b *Builder) buildRecord(ctx context.Context, ref directory.MailboxRef) (*Record, error) {
	stats, err := b.dir.GetStatistics(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	folderStats, err := b.dir.GetFolderStatistics(ctx, ref, b.folderScope)
	if err != nil {
		return nil, fmt.Errorf("folder statistics (%s): %w", b.folderScope, err)
	}
	quotas, err := b.databaseQuotas(ctx, ref.Database)
	if err != nil {
		return nil, fmt.Errorf("database quotas: %w", err)
	}

	return &Record{
		DisplayName:         ref.DisplayName,
		ServerName:          ref.ServerName,
		Database:            ref.Database,
		TotalSizeMB:         toMB(stats.TotalSize),
		DeletedSizeMB:       toMB(stats.DeletedSize),
		ItemCount:           stats.ItemCount,
		LastLogon:           formatLastLogon(stats.LastLogon),
		DumpsterSizeMB:      toMB(folderStats.FolderSize),
		WarnQuotaMB:         formatQuota(quotas.Warn),
		ProhibitSendQuotaMB: formatQuota(quotas.ProhibitSend),
		Status:              ComputeStatus(stats.TotalSize, quotas),
	}, nil
}

func (b *Builder) databaseQuotas(ctx context.Context, database string) (*directory.DatabaseQuotas, error) {
	if quotas, ok := b.quotaCache[database]; ok {
		return quotas, nil
	}
	quotas, err := b.dir.GetDatabaseQuotas(ctx, database)
	if err != nil {
		return nil, err
	}
	b.quotaCache[database] = quotas
	return quotas, nil
}

func toMB(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}

func formatQuota(quota *int64) string {
	if quota == nil {
		return "unlimited"
	}
	return fmt.Sprintf("%.0f", toMB(*quota))
}

func formatLastLogon(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}
