package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	ReferenceCSV      = "csv"
	ReferencePostgres = "postgres"
)

type Config struct {
	Env               string        `mapstructure:"ENV"`
	Port              string        `mapstructure:"PORT"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	AdminKey          string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed       string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	ReferenceSource   string        `mapstructure:"REFERENCE_SOURCE"`
	ReferenceDataPath string        `mapstructure:"REFERENCE_DATA_PATH"`
	ArtifactPath      string        `mapstructure:"ARTIFACT_PATH"`
	RemoteModelURL    string        `mapstructure:"REMOTE_MODEL_URL"`
	DataDir           string        `mapstructure:"DATA_DIR"`
	ReportDir         string        `mapstructure:"REPORT_DIR"`
	RandomSeed        int64         `mapstructure:"RANDOM_SEED"`
	TestSize          float64       `mapstructure:"TEST_SIZE"`
	GenerateRows      int           `mapstructure:"GENERATE_ROWS"`
	MissingRate       float64       `mapstructure:"MISSING_RATE"`
	MetricsEnabled    bool          `mapstructure:"METRICS_ENABLED"`
}

func Load() (Config, error) {
	return LoadWith(viper.New())
}

// LoadWith reads .env (or the config file already set on v) and the environment into
// a Config. The pipeline CLI passes a viper with its flags bound.
func LoadWith(v *viper.Viper) (Config, error) {
	if v.ConfigFileUsed() == "" {
		v.SetConfigFile(".env")
	}
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REFERENCE_SOURCE", ReferenceCSV)
	v.SetDefault("REFERENCE_DATA_PATH", filepath.Join("data", "processed", "visa_applications_cleaned.csv"))
	v.SetDefault("ARTIFACT_PATH", filepath.Join("models", "bundle.json"))
	v.SetDefault("REMOTE_MODEL_URL", "")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("REPORT_DIR", "reports")
	v.SetDefault("RANDOM_SEED", 42)
	v.SetDefault("TEST_SIZE", 0.2)
	v.SetDefault("GENERATE_ROWS", 2000)
	v.SetDefault("MISSING_RATE", 0.08)
	v.SetDefault("METRICS_ENABLED", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.ReferenceSource {
	case ReferenceCSV:
	case ReferencePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("REFERENCE_SOURCE=%s requires DATABASE_URL", c.ReferenceSource)
		}
	default:
		return fmt.Errorf("unknown REFERENCE_SOURCE %q", c.ReferenceSource)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("TEST_SIZE must be in (0,1), got %v", c.TestSize)
	}
	return nil
}

func (c Config) RawDataPath() string {
	return filepath.Join(c.DataDir, "raw", "visa_applications_raw.csv")
}

func (c Config) CleanDataPath() string {
	return filepath.Join(c.DataDir, "processed", "visa_applications_cleaned.csv")
}

func (c Config) FeaturedDataPath() string {
	return filepath.Join(c.DataDir, "processed", "visa_applications_featured.csv")
}

func (c Config) EncodingsPath() string {
	return filepath.Join(c.DataDir, "processed", "encodings.json")
}

func (c Config) ReportPath() string {
	return filepath.Join(c.ReportDir, "data_summary.txt")
}
