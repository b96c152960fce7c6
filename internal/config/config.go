// Package config loads advisor settings from ADVISOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"academic_advisor/internal/models"
	"academic_advisor/internal/progress"
	"academic_advisor/internal/recommend"
)

// Prefix is prepended to every variable name.
const Prefix = "ADVISOR_"

// Config holds application configuration
type Config struct {
	Port          string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	DBPath        string `env:"DB_PATH" envDefault:"advisor.db" validate:"required"`
	CatalogDir    string `env:"CATALOG_DIR" envDefault:"catalogs"`
	WatchCatalogs bool   `env:"WATCH_CATALOGS" envDefault:"true"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`

	// APIToken enables bearer authentication when set.
	APIToken string `env:"API_TOKEN"`

	LowScoreThreshold float64 `env:"LOW_SCORE_THRESHOLD" envDefault:"6.0" validate:"gt=0,lte=10"`
	TopN              int     `env:"TOP_N" envDefault:"5" validate:"gte=1"`
	TargetGPA         float64 `env:"TARGET_GPA" envDefault:"3.6" validate:"gte=0,lte=4"`
	TermCreditLoad    int     `env:"TERM_CREDIT_LOAD" envDefault:"18" validate:"gte=1"`
	LowGPAThreshold   float64 `env:"LOW_GPA_THRESHOLD" envDefault:"2.0" validate:"gte=0,lte=4"`
	Workers           int     `env:"WORKERS" envDefault:"4" validate:"gte=1"`

	TranscriptURL     string        `env:"TRANSCRIPT_URL" validate:"omitempty,url"`
	TranscriptToken   string        `env:"TRANSCRIPT_TOKEN"`
	TranscriptTimeout time.Duration `env:"TRANSCRIPT_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	TranscriptRPS     float64       `env:"TRANSCRIPT_RPS" envDefault:"5" validate:"gt=0"`

	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the process environment.
func Load() (*Config, error) {
	return load(env.Options{Prefix: Prefix})
}

// LoadFrom reads from an explicit variable map instead of the process
// environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Prefix: Prefix, Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges. Failures are configuration errors naming the
// offending variable.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return models.Configf(fe.Field(), "failed %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("validate config: %w", err)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// ProgressOptions maps the config onto analyzer options.
func (c *Config) ProgressOptions() progress.Options {
	return progress.Options{
		TermCreditLoad:  c.TermCreditLoad,
		LowGPAThreshold: c.LowGPAThreshold,
	}
}

// RecommendOptions maps the config onto engine options.
func (c *Config) RecommendOptions() recommend.Options {
	return recommend.Options{
		Threshold:      c.LowScoreThreshold,
		TopN:           c.TopN,
		TermCreditLoad: c.TermCreditLoad,
	}
}
