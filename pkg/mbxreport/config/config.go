package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/telekom/mailbox-report/pkg/colorize"
)

const (
	VersionV1 = "v1"

	// DefaultFolderScope is the folder statistics scope queried for the
	// dumpster size column.
	DefaultFolderScope = "RecoverableItems"
)

type Config struct {
	Version   string            `yaml:"version"`
	Directory DirectorySettings `yaml:"directory,omitempty"`
	Mail      MailSettings      `yaml:"mail,omitempty"`
	Report    ReportSettings    `yaml:"report,omitempty"`
}

// DirectorySettings configures the connection to the mail-administration
// API.
type DirectorySettings struct {
	Server                string `yaml:"server"`
	Token                 string `yaml:"token,omitempty"`
	TokenEnv              string `yaml:"token-env,omitempty"`
	CAFile                string `yaml:"ca-file,omitempty"`
	InsecureSkipTLSVerify bool   `yaml:"insecure-skip-tls-verify,omitempty"`
	Timeout               string `yaml:"timeout,omitempty"`
}

// MailSettings configures SMTP transmission of the finished report.
type MailSettings struct {
	Host               string   `yaml:"host,omitempty"`
	Port               int      `yaml:"port,omitempty"`
	Username           string   `yaml:"username,omitempty"`
	Password           string   `yaml:"password,omitempty"`
	SenderAddress      string   `yaml:"sender-address,omitempty"`
	SenderName         string   `yaml:"sender-name,omitempty"`
	Recipients         []string `yaml:"recipients,omitempty"`
	InsecureSkipVerify bool     `yaml:"insecure-skip-verify,omitempty"`
	RetryCount         int      `yaml:"retry-count,omitempty"`
	RetryBackoffMs     int      `yaml:"retry-backoff-ms,omitempty"`
}

// ReportSettings configures report content and the color rules applied to
// the rendered table.
type ReportSettings struct {
	FolderScope string          `yaml:"folder-scope,omitempty"`
	Subject     string          `yaml:"subject,omitempty"`
	Rules       []colorize.Rule `yaml:"rules,omitempty"`
}

// DefaultRules color the Status cell by quota tier: warning, prohibit-send,
// prohibit-send-receive.
func DefaultRules() []colorize.Rule {
	return []colorize.Rule{
		{Property: "Status", Color: "#FFF275", Filter: "Status -eq 1"},
		{Property: "Status", Color: "#FFB347", Filter: "Status -eq 2"},
		{Property: "Status", Color: "#FF6961", Filter: "Status -ge 3"},
	}
}

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Mail: MailSettings{
			Port:           587,
			RetryCount:     3,
			RetryBackoffMs: 100,
		},
		Report: ReportSettings{
			FolderScope: DefaultFolderScope,
			Rules:       DefaultRules(),
		},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if cfg.Report.FolderScope == "" {
		cfg.Report.FolderScope = DefaultFolderScope
	}
	if cfg.Report.Rules == nil {
		cfg.Report.Rules = DefaultRules()
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

// ResolveToken returns the admin API bearer token, preferring the inline
// value over the named environment variable.
func (d DirectorySettings) ResolveToken() string {
	if d.Token != "" {
		return d.Token
	}
	if d.TokenEnv != "" {
		return os.Getenv(d.TokenEnv)
	}
	return ""
}

// ResolveTimeout parses the directory timeout, falling back to def when
// unset or unparseable.
func (d DirectorySettings) ResolveTimeout(def time.Duration) time.Duration {
	if d.Timeout == "" {
		return def
	}
	if parsed, err := time.ParseDuration(d.Timeout); err == nil {
		return parsed
	}
	return def
}

func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New("config version missing")
	}
	if c.Directory.Timeout != "" {
		if _, err := time.ParseDuration(c.Directory.Timeout); err != nil {
			return fmt.Errorf("invalid directory timeout %q: %w", c.Directory.Timeout, err)
		}
	}
	if c.Mail.Port < 0 || c.Mail.Port > 65535 {
		return fmt.Errorf("invalid mail port %d", c.Mail.Port)
	}
	for i, rule := range c.Report.Rules {
		if strings.TrimSpace(rule.Property) == "" {
			return fmt.Errorf("rule %d: property cannot be empty", i)
		}
		if strings.TrimSpace(rule.Color) == "" {
			return fmt.Errorf("rule %d: color cannot be empty", i)
		}
		if strings.TrimSpace(rule.Filter) == "" {
			return fmt.Errorf("rule %d: filter cannot be empty", i)
		}
	}
	return nil
}
