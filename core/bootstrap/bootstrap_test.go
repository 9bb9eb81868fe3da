package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/config"
	coredatabase "github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/database"
)

func TestRunWithoutDatabase(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "tryon")
	cfg := &coreconfig.Config{}
	cfg.Storage.WorkDir = workDir

	connectCalled := false
	res, err := Run(Options{
		Config:     cfg,
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connectCalled = true
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.DB != nil {
		t.Error("expected nil DB when no database host is configured")
	}
	if connectCalled {
		t.Error("connect must not run when the database is disabled")
	}
	if _, err := os.Stat(workDir); err != nil {
		t.Errorf("workdir not created: %v", err)
	}
}

func TestRunNilConfig(t *testing.T) {
	if _, err := Run(Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestDatabaseConfigMapping(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Database = coreconfig.DatabaseConfig{
		Host:           "db.internal",
		Port:           "5433",
		User:           "bot",
		Password:       "secret",
		Name:           "tryon",
		SSLMode:        "require",
		MaxConnections: 8,
	}

	got := databaseConfig(cfg)
	want := coredatabase.Config{
		Host:           "db.internal",
		Port:           "5433",
		User:           "bot",
		Password:       "secret",
		Name:           "tryon",
		SSLMode:        "require",
		MaxConnections: 8,
	}
	if got != want {
		t.Errorf("databaseConfig = %+v, want %+v", got, want)
	}
}
