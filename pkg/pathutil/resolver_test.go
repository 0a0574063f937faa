package pathutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	p := New(Config{DataRoot: "/data"})

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"database", p.GetDatabasePath(), "/data/ledger.db"},
		{"chart", p.GetChartFile(), "/data/chart.yaml"},
		{"mapping", p.GetMappingFile(), "/data/account-mapping.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, expected %q", tt.name, tt.got, tt.expected)
			}
		})
	}

	explicit := New(Config{DataRoot: "/data", DatabasePath: "/tmp/x.db"})
	if got := explicit.GetDatabasePath(); got != "/tmp/x.db" {
		t.Errorf("GetDatabasePath() = %q, expected explicit path", got)
	}
}

func TestGetDraftFilePath(t *testing.T) {
	p := New(Config{DataRoot: "/data"})
	got, err := p.GetDraftFilePath(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetDraftFilePath() error = %v", err)
	}
	if expected := "/data/drafts/2024/2024-01.beancount"; got != expected {
		t.Errorf("GetDraftFilePath() = %q, expected %q", got, expected)
	}

	if _, err := p.GetDraftFilePath(time.Time{}); err == nil {
		t.Error("GetDraftFilePath(zero) expected error")
	}
}

func TestEnsureParentDirAndFileExists(t *testing.T) {
	root := t.TempDir()
	p := New(Config{DataRoot: root})
	file := filepath.Join(root, "a", "b", "c.txt")

	if p.FileExists(file) {
		t.Fatal("FileExists() = true before creation")
	}
	if err := p.EnsureParentDir(file); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !p.FileExists(file) {
		t.Error("FileExists() = false after creation")
	}
	if p.FileExists(filepath.Dir(file)) {
		t.Error("FileExists() = true for a directory")
	}
}
