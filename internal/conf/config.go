package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/gallery/catapi"
	"github.com/lk2023060901/cat-gallery/internal/gallery/classifier"
	gallerydata "github.com/lk2023060901/cat-gallery/internal/gallery/data"
	"github.com/lk2023060901/cat-gallery/internal/gallery/sweeper"
	"github.com/lk2023060901/cat-gallery/internal/pkg/database"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/pkg/minio"
	"github.com/lk2023060901/cat-gallery/internal/pkg/redis"
	"github.com/lk2023060901/cat-gallery/internal/pkg/workerpool"
	"github.com/spf13/viper"
)

// 存储后端
const (
	StorageLocal = "local"
	StorageMinIO = "minio"
)

const EnvProduction = "production"

type Config struct {
	App        AppConfig              `mapstructure:"app"`
	Server     ServerConfig           `mapstructure:"server"`
	Database   database.Config        `mapstructure:"database"`
	Redis      redis.Config           `mapstructure:"redis"`
	MinIO      minio.Config           `mapstructure:"minio"`
	Storage    StorageConfig          `mapstructure:"storage"`
	Log        logger.Config          `mapstructure:"log"`
	Classifier classifier.Config      `mapstructure:"classifier"`
	CatAPI     catapi.Config          `mapstructure:"catapi"`
	Sweeper    sweeper.Config         `mapstructure:"sweeper"`
	Lock       gallerydata.LockConfig `mapstructure:"lock"`
	WorkerPool workerpool.Config      `mapstructure:"workerpool"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, EnvProduction)
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig 图片存储；UploadFolder 为空时按运行环境取默认目录
type StorageConfig struct {
	Backend      string `mapstructure:"backend"` // local, minio
	UploadFolder string `mapstructure:"upload_folder"`
}

// ResolveUploadFolder 返回上传目录的绝对路径
func (s StorageConfig) ResolveUploadFolder(app AppConfig) (string, error) {
	folder := s.UploadFolder
	if folder == "" {
		if app.IsProduction() {
			folder = "uploads"
		} else {
			folder = filepath.Join("public", "uploads")
		}
	}
	if filepath.IsAbs(folder) {
		return filepath.Clean(folder), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve upload folder: %w", err)
	}
	return filepath.Join(cwd, folder), nil
}

// envBindings 沿用部署环境里已有的变量名
var envBindings = map[string][]string{
	"app.env":               {"APP_ENV", "GO_ENV"},
	"storage.upload_folder": {"UPLOAD_FOLDER"},
	"classifier.url":        {"CLASSIFI_CAT_ION_URL"},
	"database.user":         {"DB_USERNAME"},
	"database.password":     {"DB_PASSWORD"},
	"database.dbname":       {"DB_NAME"},
}

// LoadConfig 读取配置文件；path 为空时只使用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 校验各段配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server port must be between 1 and 65535")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	switch c.Storage.Backend {
	case StorageLocal:
	case StorageMinIO:
		if err := c.MinIO.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}

	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	db := database.DefaultConfig()
	v.SetDefault("database.driver", db.Driver)
	v.SetDefault("database.host", db.Host)
	v.SetDefault("database.port", db.Port)
	v.SetDefault("database.user", db.User)
	v.SetDefault("database.password", db.Password)
	v.SetDefault("database.dbname", db.DBName)
	v.SetDefault("database.sslmode", db.SSLMode)
	v.SetDefault("database.path", db.Path)
	v.SetDefault("database.maxidleconns", db.MaxIdleConns)
	v.SetDefault("database.maxopenconns", db.MaxOpenConns)
	v.SetDefault("database.connmaxlifetime", db.ConnMaxLifetime)
	v.SetDefault("database.connmaxidletime", db.ConnMaxIdleTime)
	v.SetDefault("database.loglevel", db.LogLevel)
	v.SetDefault("database.slowthreshold", db.SlowThreshold)
	v.SetDefault("database.preparestmt", db.PrepareStmt)
	v.SetDefault("database.timezone", db.Timezone)
	v.SetDefault("database.automigrate", db.AutoMigrate)

	rd := redis.DefaultConfig()
	v.SetDefault("redis.enabled", rd.Enabled)
	v.SetDefault("redis.mode", string(rd.Mode))
	v.SetDefault("redis.addr", rd.Addr)
	v.SetDefault("redis.pool_size", rd.PoolSize)
	v.SetDefault("redis.min_idle_conns", rd.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rd.DialTimeout)
	v.SetDefault("redis.read_timeout", rd.ReadTimeout)
	v.SetDefault("redis.write_timeout", rd.WriteTimeout)
	v.SetDefault("redis.max_retries", rd.MaxRetries)
	v.SetDefault("redis.key_prefix", rd.KeyPrefix)

	mc := minio.DefaultConfig()
	v.SetDefault("minio.endpoint", mc.Endpoint)
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.bucket_lookup", string(mc.BucketLookup))
	v.SetDefault("minio.bucket", mc.Bucket)
	v.SetDefault("minio.prefix", mc.Prefix)
	v.SetDefault("minio.request_timeout", mc.RequestTimeout)

	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.upload_folder", "")

	lc := logger.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.output", lc.Output)
	v.SetDefault("log.enablecaller", lc.EnableCaller)
	v.SetDefault("log.enablestacktrace", lc.EnableStacktrace)
	v.SetDefault("log.file.filename", lc.File.Filename)
	v.SetDefault("log.file.maxsize", lc.File.MaxSize)
	v.SetDefault("log.file.maxage", lc.File.MaxAge)
	v.SetDefault("log.file.maxbackups", lc.File.MaxBackups)
	v.SetDefault("log.file.compress", lc.File.Compress)

	v.SetDefault("classifier.url", "")
	v.SetDefault("classifier.timeout", 30*time.Second)

	v.SetDefault("catapi.base_url", catapi.DefaultBaseURL)
	v.SetDefault("catapi.api_key", "")
	v.SetDefault("catapi.timeout", 15*time.Second)
	v.SetDefault("catapi.max_image_bytes", 10<<20)

	sc := sweeper.DefaultConfig()
	v.SetDefault("sweeper.enabled", sc.Enabled)
	v.SetDefault("sweeper.cron", sc.Cron)
	v.SetDefault("sweeper.grace_period", sc.GracePeriod)
	v.SetDefault("sweeper.dry_run", sc.DryRun)

	lk := gallerydata.DefaultLockConfig()
	v.SetDefault("lock.ttl", lk.TTL)
	v.SetDefault("lock.max_retries", lk.MaxRetries)
	v.SetDefault("lock.retry_delay", lk.RetryDelay)

	wp := workerpool.DefaultConfig()
	v.SetDefault("workerpool.workers", wp.Workers)
	v.SetDefault("workerpool.nonblocking", wp.Nonblocking)
	v.SetDefault("workerpool.shutdown_timeout", wp.ShutdownTimeout)
}
