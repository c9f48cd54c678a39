package directory

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// Client is the REST implementation of Directory against the
// mail-administration API.
type Client struct {
	baseURL   *url.URL
	token     string
	http      *http.Client
	userAgent string
}

type Option func(*Client) error

func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: "mbxreport",
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.baseURL == nil {
		return nil, errors.New("server is required")
	}
	return c, nil
}

func WithServer(server string) Option {
	return func(c *Client) error {
		if server == "" {
			return errors.New("server is required")
		}
		parsed, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("invalid server: %w", err)
		}
		c.baseURL = parsed
		return nil
	}
}

func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout <= 0 {
			return errors.New("timeout must be positive")
		}
		c.http.Timeout = timeout
		return nil
	}
}

func WithTLSConfig(caFile string, insecureSkipTLSVerify bool) Option {
	return func(c *Client) error {
		tlsConfig, err := loadTLSConfig(caFile, insecureSkipTLSVerify)
		if err != nil {
			return err
		}
		timeout := c.http.Timeout
		c.http = &http.Client{Transport: &http.Transport{TLSClientConfig: tlsConfig}, Timeout: timeout}
		return nil
	}
}

func loadTLSConfig(caFile string, insecure bool) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: insecure}
	if caFile == "" {
		return tlsConfig, nil
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(data); !ok {
		return nil, errors.New("failed to parse CA file")
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}

// ListMailboxes enumerates the mailboxes selected by scope. Explicit
// mailbox lists are resolved one by one so a typo in a single entry fails
// with the offending identity in the error.
func (c *Client) ListMailboxes(ctx context.Context, scope Scope) ([]MailboxRef, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if len(scope.Mailboxes) > 0 {
		refs := make([]MailboxRef, 0, len(scope.Mailboxes))
		for _, id := range scope.Mailboxes {
			var ref MailboxRef
			if err := c.do(ctx, http.MethodGet, "/api/mailboxes/"+url.PathEscape(id), nil, &ref); err != nil {
				return nil, fmt.Errorf("mailbox %q: %w", id, err)
			}
			refs = append(refs, ref)
		}
		return refs, nil
	}

	endpoint := "/api/mailboxes"
	query := url.Values{}
	if scope.Server != "" {
		query.Set("server", scope.Server)
	}
	if scope.Database != "" {
		query.Set("database", scope.Database)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var refs []MailboxRef
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func (c *Client) GetStatistics(ctx context.Context, ref MailboxRef) (*Statistics, error) {
	var stats Statistics
	if err := c.do(ctx, http.MethodGet, "/api/mailboxes/"+url.PathEscape(ref.ID)+"/statistics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) GetFolderStatistics(ctx context.Context, ref MailboxRef, folderScope string) (*FolderStatistics, error) {
	endpoint := "/api/mailboxes/" + url.PathEscape(ref.ID) + "/folders/" + url.PathEscape(folderScope) + "/statistics"
	var stats FolderStatistics
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) GetDatabaseQuotas(ctx context.Context, database string) (*DatabaseQuotas, error) {
	var quotas DatabaseQuotas
	if err := c.do(ctx, http.MethodGet, "/api/databases/"+url.PathEscape(database)+"/quotas", nil, &quotas); err != nil {
		return nil, err
	}
	return &quotas, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	fullURL := *c.baseURL
	parsedEndpoint, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	fullURL.Path = path.Join(fullURL.Path, parsedEndpoint.Path)
	if parsedEndpoint.RawQuery != "" {
		fullURL.RawQuery = parsedEndpoint.RawQuery
	}

	var payload io.Reader
	if body != nil {
		bytesBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(bytesBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var apiErr struct {
		Error string `json:"error"`
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) > 0 {
		_ = json.Unmarshal(body, &apiErr)
	}
	msg := strings.TrimSpace(apiErr.Error)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// APIError is an administration API response with a 4xx/5xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("admin API request failed (%d): %s", e.StatusCode, e.Message)
}
