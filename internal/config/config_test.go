package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/friendsincode/muninn/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "muninn.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
backup_locations:
  - name: primary
    path: /backup/primary
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Environment != "production" {
		t.Fatalf("environment = %q, want production", cfg.Environment)
	}
	if cfg.Monitoring.MaxDepth != 3 || cfg.Monitoring.DaysBack != 7 || cfg.Monitoring.MaxDirs != 200 {
		t.Fatalf("unexpected monitoring defaults: %+v", cfg.Monitoring)
	}
	if cfg.Monitoring.Timeout() != 300*time.Second {
		t.Fatalf("timeout = %v, want 300s", cfg.Monitoring.Timeout())
	}
	if cfg.Monitoring.Concurrency != 4 {
		t.Fatalf("concurrency = %d, want 4", cfg.Monitoring.Concurrency)
	}
	if cfg.Locations[0].Kind != models.LocationLocal {
		t.Fatalf("location kind = %q, want local", cfg.Locations[0].Kind)
	}
	if cfg.Reports.Format != "both" || !cfg.Reports.SaveLocalReports() {
		t.Fatalf("unexpected report defaults: %+v", cfg.Reports)
	}
	if cfg.History.Backend != DatabaseSQLite {
		t.Fatalf("history backend = %q, want sqlite", cfg.History.Backend)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Fatalf("server addr = %q", cfg.Server.Addr())
	}
	if cfg.Server.ScanInterval() != time.Hour {
		t.Fatalf("scan interval = %v, want 1h", cfg.Server.ScanInterval())
	}
}

func TestLoadParsesLocations(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
backup_locations:
  - name: primary
    path: /backup/primary
    exclude_patterns:
      - /backup/primary/tmp
    max_depth: 5
    failover_group: main
  - name: secondary
    path: /mnt/backup
    failover_group: main
monitoring:
  max_depth: 2
  days_back: 14
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.Locations) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(cfg.Locations))
	}
	loc := cfg.Locations[0]
	if loc.MaxDepth != 5 || loc.FailoverGroup != "main" {
		t.Fatalf("unexpected location: %+v", loc)
	}
	if len(loc.ExcludePatterns) != 1 || loc.ExcludePatterns[0] != "/backup/primary/tmp" {
		t.Fatalf("unexpected exclude patterns: %v", loc.ExcludePatterns)
	}
	if cfg.Monitoring.MaxDepth != 2 || cfg.Monitoring.DaysBack != 14 {
		t.Fatalf("explicit monitoring values overridden: %+v", cfg.Monitoring)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MUNINN_ENV", "development")
	t.Setenv("MUNINN_SMTP_HOST", "smtp.example.com")
	t.Setenv("MUNINN_SMTP_PORT", "2525")
	t.Setenv("MUNINN_HISTORY_BACKEND", "postgres")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Environment != "development" {
		t.Fatalf("environment = %q, want development", cfg.Environment)
	}
	if cfg.Email.SMTPHost != "smtp.example.com" || cfg.Email.SMTPPort != 2525 {
		t.Fatalf("smtp overrides not applied: %+v", cfg.Email)
	}
	if cfg.History.Backend != DatabasePostgres {
		t.Fatalf("history backend = %q, want postgres", cfg.History.Backend)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no locations",
			yaml:    `monitoring: {max_depth: 2}`,
			wantErr: "at least one backup location",
		},
		{
			name: "duplicate names",
			yaml: `
backup_locations:
  - name: primary
    path: /a
  - name: primary
    path: /b
`,
			wantErr: "duplicate backup location name",
		},
		{
			name: "missing path",
			yaml: `
backup_locations:
  - name: primary
    path: ""
`,
			wantErr: "has no path",
		},
		{
			name: "unknown location type",
			yaml: `
backup_locations:
  - name: primary
    path: /a
    type: sftp
`,
			wantErr: "unknown location type",
		},
		{
			name: "bad report format",
			yaml: `
backup_locations:
  - name: primary
    path: /a
reports:
  format: pdf
`,
			wantErr: "reports.format",
		},
		{
			name: "email enabled without host",
			yaml: `
backup_locations:
  - name: primary
    path: /a
email:
  enabled: true
  from_address: x@example.com
  to_addresses: [y@example.com]
`,
			wantErr: "email.smtp_host",
		},
		{
			name: "bad history backend",
			yaml: `
backup_locations:
  - name: primary
    path: /a
history:
  enabled: true
  backend: oracle
`,
			wantErr: "unsupported history backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
