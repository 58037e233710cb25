package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"x-notion-sync/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	// 使用 Unsetenv 而非 Setenv("")：godotenv 不会覆盖已存在（即便为空）的变量
	for _, k := range []string{"X_BEARER_TOKEN", "BEARER_TOKEN", "X_USERNAME", "NOTION_API_KEY", "NOTION_DATABASE_ID", "GEMINI_API_KEY"} {
		k := k
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
		}
		os.Unsetenv(k)
		t.Cleanup(func() { os.Unsetenv(k) })
	}
}

func TestConfig_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	c, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Source.Type != "x" || c.X.MaxResults != 50 || c.X.BaseURL == "" {
		t.Fatalf("x defaults not applied: %+v %+v", c.Source, c.X)
	}
	if c.Notion.Version != "2022-06-28" || c.Notion.Properties.Title != "Name" || c.Notion.Properties.Read != "已读" {
		t.Fatalf("notion defaults not applied: %+v", c.Notion)
	}
	if c.Summary.Provider != "truncate" || c.Database.Type != "sqlite" || c.HTTP.Timeout != 20*time.Second {
		t.Fatalf("defaults missing: %+v %+v %+v", c.Summary, c.Database, c.HTTP)
	}
	if c.LogFormat == "" || c.LogLocale == "" || c.LogColor == "" {
		t.Fatalf("log defaults missing")
	}
}

func TestConfig_FileEnvAndDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	f := filepath.Join(dir, "settings.yaml")
	_ = os.WriteFile(f, []byte("X:\n  username: fromfile\n  max_results: 80\nNOTION:\n  database_id: db-file\n  properties:\n    title: Title\nHTTP:\n  timeout: 5s\n"), 0644)
	env := filepath.Join(dir, ".env")
	_ = os.WriteFile(env, []byte("NOTION_API_KEY=secret-from-dotenv\nBEARER_TOKEN=bearer-compat\n"), 0644)
	t.Setenv("X_USERNAME", "@fromenv")

	c, err := config.Load(f, env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.X.Username != "fromenv" {
		t.Fatalf("env override / @ trim failed: %q", c.X.Username)
	}
	if c.X.MaxResults != 50 {
		t.Fatalf("max_results not clamped: %d", c.X.MaxResults)
	}
	if c.Notion.DatabaseID != "db-file" || c.Notion.Token != "secret-from-dotenv" || c.X.BearerToken != "bearer-compat" {
		t.Fatalf("values not merged: %+v %+v", c.Notion, c.X)
	}
	if c.Notion.Properties.Title != "Title" || c.Notion.Properties.Category != "类型" {
		t.Fatalf("properties merge failed: %+v", c.Notion.Properties)
	}
	if c.HTTP.Timeout != 5*time.Second {
		t.Fatalf("timeout = %s", c.HTTP.Timeout)
	}
	if err := c.CheckCredentials(false); err != nil {
		t.Fatalf("credentials: %v", err)
	}
}

func TestConfig_Invalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	f := filepath.Join(dir, "c.yaml")
	for _, body := range []string{
		"SOURCE:\n  type: mastodon\n",
		"SOURCE:\n  type: feed\n",
		"SUMMARY:\n  provider: openai\n",
		"DATABASE:\n  type: postgres\n",
		"X:\n  max_results: -1\n",
		"JOURNAL_CLEAN: -3\n",
	} {
		_ = os.WriteFile(f, []byte(body), 0644)
		if _, err := config.Load(f, ""); err == nil {
			t.Fatalf("expect error for %q", body)
		}
	}
}

func TestConfig_CheckCredentials(t *testing.T) {
	clearEnv(t)
	c, err := config.Load("", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.CheckCredentials(false); err == nil {
		t.Fatalf("expect missing credentials error")
	}
	c.X.BearerToken = "b"
	if err := c.CheckCredentials(true); err != nil {
		t.Fatalf("dry run needs only bearer: %v", err)
	}
	c.Summary.Provider = "gemini"
	if err := c.CheckCredentials(true); err == nil {
		t.Fatalf("gemini without key should fail")
	}
}
