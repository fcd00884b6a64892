package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-wellbeing-backend/internal/repo"
	"github.com/tbourn/go-wellbeing-backend/internal/services"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCtx(context.Background(), t, args...)
}

func runCtx(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func sqliteEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", path)
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "")
	t.Setenv("LINE_CHANNEL_SECRET", "")
	t.Setenv("LOG_LEVEL", "error")
	return path
}

func TestMigrateCmd(t *testing.T) {
	path := sqliteEnv(t)

	out, err := run(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "migrations applied") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestDailyPushCmd_NoUsers(t *testing.T) {
	sqliteEnv(t)

	out, err := run(t, "daily-push")
	if err != nil {
		t.Fatalf("daily-push: %v", err)
	}
	var sum services.RunSummary
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &sum); err != nil {
		t.Fatalf("output is not a run summary: %q", out)
	}
	if sum.Users != 0 || sum.Sent != 0 || sum.Date == "" {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestDailyPushCmd_WithoutMessengerCountsFailures(t *testing.T) {
	path := sqliteEnv(t)

	db, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := repo.CreateUser(context.Background(), db, "U1", "tok-1", "Taro"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	out, err := run(t, "daily-push")
	if err != nil {
		t.Fatalf("daily-push: %v", err)
	}
	var sum services.RunSummary
	_ = json.Unmarshal([]byte(strings.TrimSpace(out)), &sum)
	if sum.Users != 1 || sum.Sent != 0 || sum.Failed != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestServeCmd_RequiresSecrets(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("WEBHOOK_TOKEN", "")
	t.Setenv("TASK_TOKEN", "")

	if _, err := run(t, "serve", "--addr", "127.0.0.1:0"); err == nil {
		t.Fatalf("serve must refuse to start without shared secrets")
	}
}

func TestServeCmd_ShutsDownWithSchedulerRunning(t *testing.T) {
	path := sqliteEnv(t)
	t.Setenv("WEBHOOK_TOKEN", "hook")
	t.Setenv("TASK_TOKEN", "task")
	t.Setenv("DAILY_PUSH_ENABLED", "true")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := runCtx(ctx, t, "serve", "--addr", "127.0.0.1:0")
		done <- err
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("serve did not return after cancellation")
	}

	// The database was released and is usable again.
	db, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()
	if _, err := repo.ListUsers(context.Background(), db); err != nil {
		t.Fatalf("list users after shutdown: %v", err)
	}
}

func TestRootCmd_Version(t *testing.T) {
	out, err := run(t, "--version")
	if err != nil || !strings.Contains(out, Version) {
		t.Fatalf("version output %q err=%v", out, err)
	}
}
