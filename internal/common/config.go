package common

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "GRADEBOOK_CONFIG"

// EnvPrefix scopes the environment variables read by LoadConfig.
const EnvPrefix = "GRADEBOOK_"

// Config holds all application configuration
type Config struct {
	Secrets SecretsConfig `koanf:"secrets"`
	Storage StorageConfig `koanf:"storage"`
	Sheet   SheetConfig   `koanf:"sheet"`
	Upload  UploadConfig  `koanf:"upload"`
	Notify  NotifyConfig  `koanf:"notify"`
	Bus     BusConfig     `koanf:"bus"`
	Extract ExtractConfig `koanf:"extract"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
}

// SecretsConfig selects where secret bundles come from and which names to fetch.
// Names wins over the project/environment/suffix convention when set.
type SecretsConfig struct {
	Backend     string   `koanf:"backend" validate:"oneof=aws file"`
	Names       []string `koanf:"names"`
	Project     string   `koanf:"project"`
	Environment string   `koanf:"environment"`
	Suffixes    []string `koanf:"suffixes"`
	FileDir     string   `koanf:"file_dir" validate:"required_if=Backend file"`
}

// StorageConfig selects the reader used for the triggering object.
type StorageConfig struct {
	Backend   string `koanf:"backend" validate:"oneof=s3 local"`
	LocalRoot string `koanf:"local_root"`
}

// SheetConfig holds spreadsheet append settings.
type SheetConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Backend     string `koanf:"backend" validate:"oneof=google xlsx sql"`
	Range       string `koanf:"range" validate:"required"`
	WorkbookDir string `koanf:"workbook_dir"`
	SheetName   string `koanf:"sheet_name"`
	SQLDriver   string `koanf:"sql_driver" validate:"omitempty,oneof=pgx sqlite"`
	SQLDSN      string `koanf:"sql_dsn"`
	SQLTable    string `koanf:"sql_table"`
}

// UploadConfig holds settings for the optional raw file upload stage.
type UploadConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Backend   string `koanf:"backend" validate:"oneof=drive local"`
	LocalRoot string `koanf:"local_root" validate:"required_if=Backend local"`
}

// NotifyConfig holds notification delivery settings.
type NotifyConfig struct {
	Mode           string `koanf:"mode" validate:"oneof=email bus both none"`
	EmailBackend   string `koanf:"email_backend" validate:"oneof=ses smtp"`
	OversizePolicy string `koanf:"oversize_policy" validate:"oneof=fallback abort"`
	Region         string `koanf:"region"`
	SMTPHost       string `koanf:"smtp_host" validate:"required_if=EmailBackend smtp"`
	SMTPPort       int    `koanf:"smtp_port" validate:"min=0,max=65535"`
	SMTPUseTLS     bool   `koanf:"smtp_use_tls"`
	FromName       string `koanf:"from_name"`
}

// BusConfig holds the message bus used for attachment delivery.
type BusConfig struct {
	Backend   string `koanf:"backend" validate:"oneof=nats memory"`
	URL       string `koanf:"url"`
	Topic     string `koanf:"topic" validate:"required"`
	JetStream bool   `koanf:"jetstream"`
}

// ExtractConfig covers the per-deployment differences in log layout.
type ExtractConfig struct {
	IdentifierKeywords []string `koanf:"identifier_keywords" validate:"min=1,dive,required"`
	IdentifierLabel    string   `koanf:"identifier_label" validate:"required"`
}

// MetricsConfig holds optional Pushgateway settings.
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
	Job            string `koanf:"job"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// NotifiesByEmail reports whether the direct email channel is in use.
func (c NotifyConfig) NotifiesByEmail() bool {
	return c.Mode == "email" || c.Mode == "both"
}

// NotifiesByBus reports whether the bus attachment channel is in use.
func (c NotifyConfig) NotifiesByBus() bool {
	return c.Mode == "bus" || c.Mode == "both"
}

// SecretNames returns the secret names to fetch, in merge order.
func (c SecretsConfig) SecretNames() []string {
	if len(c.Names) > 0 {
		return c.Names
	}
	names := make([]string, 0, len(c.Suffixes))
	for _, suffix := range c.Suffixes {
		parts := make([]string, 0, 3)
		for _, p := range []string{c.Project, c.Environment, suffix} {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		names = append(names, strings.Join(parts, "-"))
	}
	return names
}

// DefaultConfig returns the configuration used before file and env overrides.
func DefaultConfig() *Config {
	return &Config{
		Secrets: SecretsConfig{
			Backend:     "aws",
			Project:     "my-project",
			Environment: "dev",
			Suffixes:    []string{"app-config"},
		},
		Storage: StorageConfig{
			Backend: "s3",
		},
		Sheet: SheetConfig{
			Enabled:   true,
			Backend:   "google",
			Range:     "A:E",
			SheetName: "Sheet1",
			SQLDriver: "sqlite",
			SQLTable:  "sheet_rows",
		},
		Upload: UploadConfig{
			Enabled: true,
			Backend: "drive",
		},
		Notify: NotifyConfig{
			Mode:           "email",
			EmailBackend:   "ses",
			OversizePolicy: "fallback",
			Region:         "ap-southeast-1",
			SMTPPort:       587,
			SMTPUseTLS:     true,
			FromName:       "Penilaian Otomatis",
		},
		Bus: BusConfig{
			Backend: "nats",
			URL:     "nats://127.0.0.1:4222",
			Topic:   "gradebook.notifications",
		},
		Extract: ExtractConfig{
			IdentifierKeywords: []string{"nim:", "nrp:"},
			IdentifierLabel:    "NIM",
		},
		Metrics: MetricsConfig{
			Job: "gradebook-relay",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// sliceConfigPaths are the keys that may arrive as comma separated env strings.
var sliceConfigPaths = []string{
	"secrets.names",
	"secrets.suffixes",
	"extract.identifier_keywords",
}

// legacyEnv maps the variable names used by earlier deployments onto config keys.
var legacyEnv = map[string]string{
	"secret_name": "secrets.names",
	"aws_region":  "notify.region",
}

// LoadConfig layers defaults, an optional YAML file and the environment.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform turns GRADEBOOK_SHEET__BACKEND into sheet.backend. Returning ""
// drops the variable.
func envTransform(key string) string {
	lower := strings.ToLower(key)
	if mapped, ok := legacyEnv[lower]; ok {
		return mapped
	}
	if !strings.HasPrefix(key, EnvPrefix) || key == ConfigPathEnvVar {
		return ""
	}
	return strings.ReplaceAll(strings.TrimPrefix(lower, strings.ToLower(EnvPrefix)), "__", ".")
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if err := Validator().Struct(c); err != nil {
		return NewAppError(CodeConfig, describeValidation(err), ErrInvalidInput)
	}
	if len(c.Secrets.SecretNames()) == 0 {
		return NewAppError(CodeConfig, "no secret names configured", ErrInvalidInput)
	}
	return nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
