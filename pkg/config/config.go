// Package config loads settings from the environment and an optional .env
// file.
package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"smartreceipts/pkg/preprocess"
)

type Config struct {
	Server   Server   `mapstructure:",squash"`
	Database Database `mapstructure:",squash"`
	Auth     Auth     `mapstructure:",squash"`
	Log      Log      `mapstructure:",squash"`
	OCR      OCR      `mapstructure:",squash"`
	Retry    Retry    `mapstructure:",squash"`
	Local    Local    `mapstructure:",squash"`
}

type Server struct {
	Port       string `mapstructure:"port"`
	UploadBase string `mapstructure:"upload_base"`
}

type Database struct {
	DSN         string `mapstructure:"db_dsn"`
	AutoMigrate bool   `mapstructure:"db_auto_migrate"`
}

type Auth struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminPassword string `mapstructure:"admin_password"`
}

type Log struct {
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format"`
}

type OCR struct {
	Engine        string  `mapstructure:"ocr_engine"`
	TesseractLang string  `mapstructure:"tesseract_lang"`
	GeminiAPIKey  string  `mapstructure:"gemini_api_key"`
	GeminiModel   string  `mapstructure:"gemini_model"`
	MinSize       int     `mapstructure:"ocr_min_size"`
	Contrast      float64 `mapstructure:"ocr_contrast"`
	BlockSize     int     `mapstructure:"ocr_block_size"`
	ThresholdC    int     `mapstructure:"ocr_threshold_c"`
	Sharpen       float64 `mapstructure:"ocr_sharpen"`
	MedianRadius  int     `mapstructure:"ocr_median_radius"`
}

type Retry struct {
	Cron    string `mapstructure:"scan_retry_cron"`
	Enabled bool   `mapstructure:"scan_retry_enabled"`
}

type Local struct {
	BoltPath string `mapstructure:"bolt_path"`
}

// Preprocess converts the OCR settings into preprocessing options.
func (o OCR) Preprocess() preprocess.Options {
	return preprocess.Options{
		MinSize:         o.MinSize,
		Contrast:        o.Contrast,
		BlockSize:       o.BlockSize,
		Constant:        o.ThresholdC,
		SharpenStrength: o.Sharpen,
		MedianRadius:    o.MedianRadius,
	}
}

func setDefaults(v *viper.Viper) {
	def := preprocess.DefaultOptions()

	v.SetDefault("PORT", "8081")
	v.SetDefault("UPLOAD_BASE", "public/uploads")

	v.SetDefault("DB_DSN", "")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("ADMIN_PASSWORD", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("OCR_ENGINE", "tesseract")
	v.SetDefault("TESSERACT_LANG", "por")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("OCR_MIN_SIZE", def.MinSize)
	v.SetDefault("OCR_CONTRAST", def.Contrast)
	v.SetDefault("OCR_BLOCK_SIZE", def.BlockSize)
	v.SetDefault("OCR_THRESHOLD_C", def.Constant)
	v.SetDefault("OCR_SHARPEN", def.SharpenStrength)
	v.SetDefault("OCR_MEDIAN_RADIUS", def.MedianRadius)

	v.SetDefault("SCAN_RETRY_CRON", "*/10 * * * *")
	v.SetDefault("SCAN_RETRY_ENABLED", false)

	v.SetDefault("BOLT_PATH", "receipts.db")
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Warn("config: could not read .env")
	}
	return FromViper(viper.New())
}

// FromViper resolves a Config from v with defaults applied and environment
// lookups enabled.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
