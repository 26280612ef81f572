package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, StorageLocal, cfg.Storage.Backend)
	assert.Equal(t, "0 0 3 * * *", cfg.Sweeper.Cron)
	assert.Equal(t, time.Hour, cfg.Sweeper.GracePeriod)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 4, cfg.WorkerPool.Workers)
	assert.False(t, cfg.Redis.Enabled)
	assert.Empty(t, cfg.Classifier.URL)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
database:
  driver: sqlite
  path: ":memory:"
storage:
  backend: local
  upload_folder: /srv/cats
classifier:
  url: http://classifier:5000
  timeout: 5s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/srv/cats", cfg.Storage.UploadFolder)
	assert.Equal(t, "http://classifier:5000", cfg.Classifier.URL)
	assert.Equal(t, 5*time.Second, cfg.Classifier.Timeout)
	// 未出现在文件中的字段保留默认值
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
}

func TestLoadConfig_EnvBindings(t *testing.T) {
	t.Setenv("UPLOAD_FOLDER", "/data/uploads")
	t.Setenv("CLASSIFI_CAT_ION_URL", "http://cls:8000")
	t.Setenv("DB_USERNAME", "cat")
	t.Setenv("DB_PASSWORD", "meow")
	t.Setenv("DB_NAME", "catdb")
	t.Setenv("GO_ENV", "production")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/data/uploads", cfg.Storage.UploadFolder)
	assert.Equal(t, "http://cls:8000", cfg.Classifier.URL)
	assert.Equal(t, "cat", cfg.Database.User)
	assert.Equal(t, "meow", cfg.Database.Password)
	assert.Equal(t, "catdb", cfg.Database.DBName)
	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad storage backend", "storage:\n  backend: ftp\n"},
		{"minio without credentials", "storage:\n  backend: minio\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"bad driver", "database:\n  driver: oracle\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveUploadFolder(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name    string
		storage StorageConfig
		app     AppConfig
		want    string
	}{
		{"development default", StorageConfig{}, AppConfig{Env: "development"}, filepath.Join(cwd, "public", "uploads")},
		{"production default", StorageConfig{}, AppConfig{Env: "production"}, filepath.Join(cwd, "uploads")},
		{"relative override", StorageConfig{UploadFolder: "pics"}, AppConfig{Env: "production"}, filepath.Join(cwd, "pics")},
		{"absolute override", StorageConfig{UploadFolder: "/var/cats/"}, AppConfig{}, "/var/cats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.storage.ResolveUploadFolder(tt.app)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
