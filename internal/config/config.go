package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	SFTP      SFTP
	Redis     Redis
	Blob      Blob
	Watermark Watermark
	Sync      Sync
}

// SFTP describes the credentialed connection to the vendor file tree.
// OpTimeout bounds each individual listing or download; the vendor server
// occasionally wedges mid-call and a stuck operation must fail into the
// retry policy rather than hang the run.
type SFTP struct {
	Host           string
	Port           int
	User           string
	Password       string
	Root           string
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Blob configures the public object store uploads land in. PublicBaseURL is
// the prefix browsers fetch objects from, e.g. https://cdn.example.com/wallpapers-bucket.
type Blob struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

type Watermark struct {
	Enabled  bool
	LogoPath string
	Position string
	Opacity  float64
	Scale    float64
	Margin   int
}

// Sync holds pipeline tuning knobs.
type Sync struct {
	CheckpointPath  string
	CommitEvery     int
	RecordDelay     time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
	IndexChunkSize  int
	ImageExtensions []string
	ExcludedDirs    []string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file, when present, has already been loaded by the root command.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SFTP_PORT", 22)
	v.SetDefault("SFTP_ROOT", "/WallpaperBooks")
	v.SetDefault("SFTP_CONNECT_TIMEOUT", "30s")
	v.SetDefault("SFTP_OP_TIMEOUT", "60s")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("BLOB_ENDPOINT", "localhost:9000")
	v.SetDefault("BLOB_BUCKET", "wallpapers")
	v.SetDefault("BLOB_USE_SSL", false)
	v.SetDefault("BLOB_PUBLIC_URL", "")

	v.SetDefault("WATERMARK_ENABLED", true)
	v.SetDefault("WATERMARK_LOGO", "./assets/logo-header.png")
	v.SetDefault("WATERMARK_POSITION", "center")
	v.SetDefault("WATERMARK_OPACITY", 0.4)
	v.SetDefault("WATERMARK_SCALE", 0.3)
	v.SetDefault("WATERMARK_MARGIN", 20)

	v.SetDefault("SYNC_CHECKPOINT_FILE", "./sync_progress.json")
	v.SetDefault("SYNC_COMMIT_EVERY", 5)
	v.SetDefault("SYNC_RECORD_DELAY", "500ms")
	v.SetDefault("SYNC_MAX_RETRIES", 3)
	v.SetDefault("SYNC_RETRY_BASE_DELAY", "2s")
	v.SetDefault("SYNC_INDEX_CHUNK_SIZE", 1000)
	v.SetDefault("SYNC_IMAGE_EXTS", ".jpg,.jpeg,.png")
	v.SetDefault("SYNC_EXCLUDED_DIRS", "All Data,All Data New,All Images,300dpi,Thumbs,.recycle")

	v.AutomaticEnv()

	cfg := &Config{
		SFTP: SFTP{
			Host:           v.GetString("SFTP_HOST"),
			Port:           v.GetInt("SFTP_PORT"),
			User:           v.GetString("SFTP_USER"),
			Password:       v.GetString("SFTP_PASSWORD"),
			Root:           v.GetString("SFTP_ROOT"),
			ConnectTimeout: v.GetDuration("SFTP_CONNECT_TIMEOUT"),
			OpTimeout:      v.GetDuration("SFTP_OP_TIMEOUT"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Blob: Blob{
			Endpoint:      v.GetString("BLOB_ENDPOINT"),
			AccessKey:     v.GetString("BLOB_ACCESS_KEY"),
			SecretKey:     v.GetString("BLOB_SECRET_KEY"),
			Bucket:        v.GetString("BLOB_BUCKET"),
			UseSSL:        v.GetBool("BLOB_USE_SSL"),
			PublicBaseURL: v.GetString("BLOB_PUBLIC_URL"),
		},
		Watermark: Watermark{
			Enabled:  v.GetBool("WATERMARK_ENABLED"),
			LogoPath: v.GetString("WATERMARK_LOGO"),
			Position: v.GetString("WATERMARK_POSITION"),
			Opacity:  v.GetFloat64("WATERMARK_OPACITY"),
			Scale:    v.GetFloat64("WATERMARK_SCALE"),
			Margin:   v.GetInt("WATERMARK_MARGIN"),
		},
		Sync: Sync{
			CheckpointPath:  v.GetString("SYNC_CHECKPOINT_FILE"),
			CommitEvery:     v.GetInt("SYNC_COMMIT_EVERY"),
			RecordDelay:     v.GetDuration("SYNC_RECORD_DELAY"),
			MaxRetries:      v.GetInt("SYNC_MAX_RETRIES"),
			RetryBaseDelay:  v.GetDuration("SYNC_RETRY_BASE_DELAY"),
			IndexChunkSize:  v.GetInt("SYNC_INDEX_CHUNK_SIZE"),
			ImageExtensions: splitList(v.GetString("SYNC_IMAGE_EXTS")),
			ExcludedDirs:    splitList(v.GetString("SYNC_EXCLUDED_DIRS")),
		},
	}

	return cfg, nil
}

// ValidateSFTP checks the settings only the sync command needs; export and
// reset run without vendor credentials.
func (c *Config) ValidateSFTP() error {
	if c.SFTP.Host == "" || c.SFTP.User == "" {
		return fmt.Errorf("SFTP_HOST and SFTP_USER must be set")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
