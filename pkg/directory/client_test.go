package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(WithServer(srv.URL), WithToken("secret"))
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresServer(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)

	_, err = NewClient(WithServer("://bad url"))
	assert.Error(t, err)
}

func TestListMailboxesAll(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mailboxes", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.RawQuery)
		_ = json.NewEncoder(w).Encode([]MailboxRef{
			{ID: "alice", DisplayName: "Alice", Database: "DB1", ServerName: "MBX01"},
			{ID: "bob", DisplayName: "Bob", Database: "DB2", ServerName: "MBX01"},
		})
	})

	refs, err := client.ListMailboxes(context.Background(), Scope{All: true})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "alice", refs[0].ID)
}

func TestListMailboxesByDatabase(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DB1", r.URL.Query().Get("database"))
		_ = json.NewEncoder(w).Encode([]MailboxRef{{ID: "alice", Database: "DB1"}})
	})

	refs, err := client.ListMailboxes(context.Background(), Scope{Database: "DB1"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
}

func TestListMailboxesExplicitList(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/mailboxes/alice":
			_ = json.NewEncoder(w).Encode(MailboxRef{ID: "alice"})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "mailbox not found"})
		}
	})

	refs, err := client.ListMailboxes(context.Background(), Scope{Mailboxes: []string{"alice"}})
	require.NoError(t, err)
	require.Len(t, refs, 1)

	_, err = client.ListMailboxes(context.Background(), Scope{Mailboxes: []string{"ghost"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `mailbox "ghost"`)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "mailbox not found", apiErr.Message)
}

func TestGetStatistics(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mailboxes/alice/statistics", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Statistics{TotalSize: 1024, DeletedSize: 512, ItemCount: 3})
	})

	stats, err := client.GetStatistics(context.Background(), MailboxRef{ID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(1024), stats.TotalSize)
	assert.Equal(t, int64(3), stats.ItemCount)
}

func TestGetFolderStatistics(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mailboxes/alice/folders/RecoverableItems/statistics", r.URL.Path)
		_ = json.NewEncoder(w).Encode(FolderStatistics{FolderSize: 2048})
	})

	stats, err := client.GetFolderStatistics(context.Background(), MailboxRef{ID: "alice"}, "RecoverableItems")
	require.NoError(t, err)
	assert.Equal(t, int64(2048), stats.FolderSize)
}

func TestGetDatabaseQuotas(t *testing.T) {
	warn := int64(100 << 20)
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/databases/DB1/quotas", r.URL.Path)
		_ = json.NewEncoder(w).Encode(DatabaseQuotas{Warn: &warn})
	})

	quotas, err := client.GetDatabaseQuotas(context.Background(), "DB1")
	require.NoError(t, err)
	require.NotNil(t, quotas.Warn)
	assert.Equal(t, warn, *quotas.Warn)
	assert.Nil(t, quotas.ProhibitSend, "absent tier stays unlimited")
}

func TestScopeValidate(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		wantErr bool
	}{
		{name: "all", scope: Scope{All: true}},
		{name: "server", scope: Scope{Server: "MBX01"}},
		{name: "database", scope: Scope{Database: "DB1"}},
		{name: "mailboxes", scope: Scope{Mailboxes: []string{"alice"}}},
		{name: "none", scope: Scope{}, wantErr: true},
		{name: "two selectors", scope: Scope{All: true, Server: "MBX01"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scope.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
