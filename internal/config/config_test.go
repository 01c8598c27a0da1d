package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Auth:     AuthConfig{SuperuserToken: "root"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MemoryDriverWithoutAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = DriverMemory
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "valkey"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	expected := `database.driver must be "rueidis", "goredis" or "memory", got "valkey"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_Tokens(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.SuperuserToken = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing superuser token")
	}

	cfg = validConfig()
	cfg.Auth.HealthCheckToken = cfg.Auth.SuperuserToken
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for identical admin tokens")
	}
}

func TestValidate_Policies(t *testing.T) {
	for _, policy := range []string{PolicyIgnore, PolicyInline, PolicyQueued} {
		t.Run("policy="+policy, func(t *testing.T) {
			cfg := validConfig()
			cfg.Pipeline.EventsPolicy = policy
			cfg.Pipeline.LogsPolicy = policy
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for %q: %v", policy, err)
			}
		})
	}

	cfg := validConfig()
	cfg.Pipeline.LogsPolicy = "kafka"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "pipeline.logs_policy") {
		t.Errorf("expected logs_policy error, got %v", err)
	}
}

func TestValidate_Channels(t *testing.T) {
	cfg := validConfig()
	cfg.Notifications.Channels = []ChannelConfig{{Name: "custom"}}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for channel without payload key")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != DriverRueidis {
		t.Errorf("expected Driver=%q, got %q", DriverRueidis, cfg.Database.Driver)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Pipeline.EventsPolicy != PolicyQueued || cfg.Pipeline.LogsPolicy != PolicyQueued {
		t.Errorf("expected queued policies, got %q/%q", cfg.Pipeline.EventsPolicy, cfg.Pipeline.LogsPolicy)
	}
	if cfg.Pipeline.EventsChannel != "searchplane:events" || cfg.Pipeline.LogsChannel != "searchplane:logs" {
		t.Errorf("unexpected channels %q/%q", cfg.Pipeline.EventsChannel, cfg.Pipeline.LogsChannel)
	}
	if cfg.Pipeline.JournalMaxLen != 1000 {
		t.Errorf("expected JournalMaxLen=1000, got %d", cfg.Pipeline.JournalMaxLen)
	}
	if cfg.Notifications.SendBuffer != 64 || cfg.Notifications.WriteTimeoutMs != 5000 {
		t.Errorf("unexpected notification defaults %+v", cfg.Notifications)
	}
	if len(cfg.Notifications.Channels) != 0 {
		t.Errorf("disabled notifications should not get channels, got %v", cfg.Notifications.Channels)
	}
	if cfg.Storage.KeyPrefix != "searchplane:" {
		t.Errorf("expected KeyPrefix='searchplane:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NotificationChannels(t *testing.T) {
	cfg := Config{Notifications: NotificationsConfig{Enabled: true}}
	cfg.ApplyDefaults()

	want := []ChannelConfig{
		{Name: "searchplane:events", PayloadKey: "event"},
		{Name: "searchplane:logs", PayloadKey: "log"},
	}
	if len(cfg.Notifications.Channels) != len(want) {
		t.Fatalf("expected %d channels, got %v", len(want), cfg.Notifications.Channels)
	}
	for i := range want {
		if cfg.Notifications.Channels[i] != want[i] {
			t.Errorf("channel %d: got %+v, want %+v", i, cfg.Notifications.Channels[i], want[i])
		}
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: DriverGoRedis, ReadinessTimeout: 15},
		Pipeline: PipelineConfig{EventsPolicy: PolicyInline, JournalMaxLen: 50},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != DriverGoRedis {
		t.Errorf("expected Driver=%q, got %q", DriverGoRedis, cfg.Database.Driver)
	}
	if cfg.Pipeline.EventsPolicy != PolicyInline || cfg.Pipeline.JournalMaxLen != 50 {
		t.Errorf("unexpected pipeline config %+v", cfg.Pipeline)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SP_TEST_PORT", "9090")

	got := string(expandEnvVars([]byte("port: ${SP_TEST_PORT}\nhost: ${SP_TEST_UNSET:-localhost}\nempty: ${SP_TEST_UNSET}")))
	want := "port: 9090\nhost: localhost\nempty: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yml := `
http:
  port: ${SP_TEST_HTTP_PORT:-8081}
database:
  addrs: ["localhost:6379"]
auth:
  superuser_token: ${SP_TEST_SUPERUSER}
notifications:
  enabled: true
`
	if err := os.WriteFile(filepath.Join(dir, "config", "sptest.yaml"), []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SP_TEST_SUPERUSER=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Cleanup(func() { _ = os.Unsetenv("SP_TEST_SUPERUSER") })

	cfg, err := Load("sptest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8081 {
		t.Errorf("expected port 8081, got %d", cfg.HTTP.Port)
	}
	if cfg.Auth.SuperuserToken != "from-dotenv" {
		t.Errorf("expected superuser token from .env, got %q", cfg.Auth.SuperuserToken)
	}
	if len(cfg.Notifications.Channels) != 2 {
		t.Errorf("expected default channels, got %v", cfg.Notifications.Channels)
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("does-not-exist"); err == nil {
		t.Fatal("expected error for missing config")
	}
}
