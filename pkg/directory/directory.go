package directory

import (
	"context"
	"errors"
	"time"
)

// MailboxRef identifies one mailbox tracked by the directory service.
type MailboxRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Database    string `json:"database"`
	ServerName  string `json:"serverName"`
}

// Statistics holds the usage counters of one mailbox. Sizes are bytes.
type Statistics struct {
	TotalSize   int64      `json:"totalSize"`
	DeletedSize int64      `json:"deletedSize"`
	ItemCount   int64      `json:"itemCount"`
	LastLogon   *time.Time `json:"lastLogon,omitempty"`
}

// FolderStatistics holds the aggregate size of one folder scope of a
// mailbox, e.g. the recoverable-items dumpster.
type FolderStatistics struct {
	FolderSize int64 `json:"folderSize"`
}

// DatabaseQuotas carries the three quota tiers of a mailbox database in
// bytes. A nil tier means unlimited.
type DatabaseQuotas struct {
	Warn                *int64 `json:"warn,omitempty"`
	ProhibitSend        *int64 `json:"prohibitSend,omitempty"`
	ProhibitSendReceive *int64 `json:"prohibitSendReceive,omitempty"`
}

// Scope selects which mailboxes a report run covers. Exactly one selector
// must be set.
type Scope struct {
	All       bool
	Server    string
	Database  string
	Mailboxes []string
}

func (s Scope) Validate() error {
	selectors := 0
	if s.All {
		selectors++
	}
	if s.Server != "" {
		selectors++
	}
	if s.Database != "" {
		selectors++
	}
	if len(s.Mailboxes) > 0 {
		selectors++
	}
	if selectors == 0 {
		return errors.New("no mailbox selection given")
	}
	if selectors > 1 {
		return errors.New("mailbox selections are mutually exclusive")
	}
	return nil
}

// Directory is the administration-layer contract the report builder
// consumes.
type Directory interface {
	ListMailboxes(ctx context.Context, scope Scope) ([]MailboxRef, error)
	GetStatistics(ctx context.Context, ref MailboxRef) (*Statistics, error)
	GetFolderStatistics(ctx context.Context, ref MailboxRef, folderScope string) (*FolderStatistics, error)
	GetDatabaseQuotas(ctx context.Context, database string) (*DatabaseQuotas, error)
}
