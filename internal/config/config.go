package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Log           LogConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Models        ModelsConfig
	Detection     DetectionConfig
	Preprocessing PreprocessingConfig
	Render        RenderConfig
	Storage       StorageConfig
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxUploadMB    int64         `mapstructure:"max_upload_mb"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type DatabaseConfig struct {
	Enabled bool
	DSN     string
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTAlgorithm string        `mapstructure:"jwt_algorithm"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	LoginTTL     time.Duration `mapstructure:"login_ttl"`
}

type ModelsConfig struct {
	ORTLibrary       string `mapstructure:"ort_library"`
	DefaultModel     string `mapstructure:"default_model"`
	CustomModel      string `mapstructure:"custom_model"`
	PoolSize         int    `mapstructure:"pool_size"`
	DefaultInputSize int    `mapstructure:"default_input_size"`
	CustomInputSize  int    `mapstructure:"custom_input_size"`
}

type DetectionConfig struct {
	Confidence    float64
	IoU           float64 `mapstructure:"iou"`
	MaxDetections int     `mapstructure:"max_detections"`
}

type PreprocessingConfig struct {
	Enabled      bool
	MaxImageSize int `mapstructure:"max_image_size"`
	Contrast     float64
	Sharpness    float64
	Brightness   float64
}

type RenderConfig struct {
	LineThickness  int     `mapstructure:"line_thickness"`
	FontSize       float64 `mapstructure:"font_size"`
	BannerFontSize float64 `mapstructure:"banner_font_size"`
	FontPath       string  `mapstructure:"font_path"`
	HideLabels     bool    `mapstructure:"hide_labels"`
	HideConf       bool    `mapstructure:"hide_conf"`
}

type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
}

// Load reads .env, an optional config file from CONFIG_PATH and the process
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// JWT_SECRET / JWT_ALGORITHM are the names the rest of the application uses.
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET", "AUTH_JWT_SECRET")
	_ = v.BindEnv("auth.jwt_algorithm", "JWT_ALGORITHM", "AUTH_JWT_ALGORITHM")
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DB_DSN")
	_ = v.BindEnv("server.port", "PORT", "SERVER_PORT")

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// A DSN alone turns the database on unless it is explicitly disabled.
	if v.IsSet("database.enabled") {
		cfg.Database.Enabled = v.GetBool("database.enabled")
	} else {
		cfg.Database.Enabled = cfg.Database.DSN != ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_mb", 100)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("database.dsn", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_algorithm", "HS256")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.login_ttl", 3*time.Hour)

	v.SetDefault("models.ort_library", "")
	v.SetDefault("models.default_model", "models/yolov5s.onnx")
	v.SetDefault("models.custom_model", "models/trained_v3.onnx")
	v.SetDefault("models.pool_size", 2)
	v.SetDefault("models.default_input_size", 640)
	v.SetDefault("models.custom_input_size", 224)

	v.SetDefault("detection.confidence", 0.30)
	v.SetDefault("detection.iou", 0.45)
	v.SetDefault("detection.max_detections", 100)

	v.SetDefault("preprocessing.enabled", true)
	v.SetDefault("preprocessing.max_image_size", 1280)
	v.SetDefault("preprocessing.contrast", 1.2)
	v.SetDefault("preprocessing.sharpness", 1.3)
	v.SetDefault("preprocessing.brightness", 1.1)

	v.SetDefault("render.line_thickness", 5)
	v.SetDefault("render.font_size", 20)
	v.SetDefault("render.banner_font_size", 40)
	v.SetDefault("render.font_path", "arial.ttf")
	v.SetDefault("render.hide_labels", false)
	v.SetDefault("render.hide_conf", false)

	v.SetDefault("storage.upload_dir", "temporary_storage")
}

func (c *Config) Validate() error {
	if c.Detection.Confidence < 0 || c.Detection.Confidence > 1 {
		return errors.New("detection.confidence must be between 0 and 1")
	}
	if c.Detection.IoU < 0 || c.Detection.IoU > 1 {
		return errors.New("detection.iou must be between 0 and 1")
	}
	if c.Detection.MaxDetections < 1 {
		return errors.New("detection.max_detections must be positive")
	}
	if c.Preprocessing.MaxImageSize < 1 {
		return errors.New("preprocessing.max_image_size must be positive")
	}
	if c.Models.PoolSize < 1 {
		return errors.New("models.pool_size must be at least 1")
	}
	if c.Models.DefaultModel == "" {
		return errors.New("models.default_model is required")
	}
	if c.Database.Enabled && c.Database.DSN == "" {
		return errors.New("database.dsn is required when the database is enabled")
	}
	if c.Storage.UploadDir == "" {
		return errors.New("storage.upload_dir is required")
	}
	return nil
}
