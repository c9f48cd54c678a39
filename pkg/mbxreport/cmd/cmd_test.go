package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/mailbox-report/pkg/directory"
)

func execute(t *testing.T, cfg Config, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	if cfg.OutputWriter == nil {
		cfg.OutputWriter = buf
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(t.TempDir(), "missing.yaml")
	}
	root := NewRootCommand(cfg)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, Config{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mbxreport dev")

	out, err = execute(t, Config{}, "version", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
}

func TestReportSelectionFlagsAreMutuallyExclusive(t *testing.T) {
	_, err := execute(t, Config{}, "report", "--all", "--server", "MBX01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestReportRequiresASelection(t *testing.T) {
	_, err := execute(t, Config{}, "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one of the flags")
}

func TestReportRequiresDirectoryServer(t *testing.T) {
	_, err := execute(t, Config{}, "report", "--all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no admin API server configured")
}

func TestSendEmailRequiresMailSettings(t *testing.T) {
	path := writeConfigFile(t, "directory:\n  server: https://api.example.com\n")
	_, err := execute(t, Config{ConfigPath: path}, "report", "--all", "--send-email")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host")

	_, err = execute(t, Config{ConfigPath: path}, "report", "--all", "--send-email", "--mail-server", "smtp.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipients")
}

func TestReadMailboxFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailboxes.txt")
	require.NoError(t, os.WriteFile(path, []byte("alice@example.com\n\n# comment\nbob@example.com \n"), 0o600))

	identities, err := readMailboxFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, identities)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o600))
	_, err = readMailboxFile(empty)
	assert.Error(t, err)
}

func TestSubjectLine(t *testing.T) {
	at := time.Date(2026, 8, 31, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, "Mailbox Quota Report 2026-08-31", subjectLine("", at))
	assert.Equal(t, "Quota Weekly 2026-08-31", subjectLine("Quota Weekly", at))
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// fakeAdminAPI serves just enough of the admin API for a full report run.
func fakeAdminAPI(t *testing.T) *httptest.Server {
	t.Helper()
	warn := int64(100 << 20)
	prohibit := int64(150 << 20)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mailboxes", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]directory.MailboxRef{
			{ID: "alice", DisplayName: "Alice", Database: "DB1", ServerName: "MBX01"},
			{ID: "bob", DisplayName: "Bob", Database: "DB1", ServerName: "MBX01"},
		})
	})
	mux.HandleFunc("/api/mailboxes/alice/statistics", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(directory.Statistics{TotalSize: 120 << 20, ItemCount: 10})
	})
	mux.HandleFunc("/api/mailboxes/bob/statistics", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(directory.Statistics{TotalSize: 10 << 20, ItemCount: 2})
	})
	mux.HandleFunc("/api/mailboxes/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/statistics") {
			_ = json.NewEncoder(w).Encode(directory.FolderStatistics{FolderSize: 1 << 20})
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/databases/DB1/quotas", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(directory.DatabaseQuotas{Warn: &warn, ProhibitSend: &prohibit})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestReportEndToEndWritesColorizedHTML(t *testing.T) {
	api := fakeAdminAPI(t)
	cfgPath := writeConfigFile(t, fmt.Sprintf("directory:\n  server: %s\n", api.URL))
	outPath := filepath.Join(t.TempDir(), "report.html")

	_, err := execute(t, Config{ConfigPath: cfgPath}, "report", "--all", "--output", outPath)
	require.NoError(t, err)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	page := string(content)

	assert.Contains(t, page, "Mailbox Quota Report")
	assert.Contains(t, page, "<td>Alice</td>")
	// Alice is over the 100 MB warn quota: her Status cell is colored by
	// the default warning rule.
	assert.Contains(t, page, `<td style="background-color:#FFF275">1</td>`)
	// Bob is under quota and stays unstyled.
	assert.Contains(t, page, "<td>Bob</td>")
	assert.Contains(t, page, "2 mailboxes")
}
