package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the CLI environment configuration. Per-call synthesis inputs
// (schema, env tag, overrides) come from flags, never from here.
type Config struct {
	WorkDir          string `env:"STACKWEAVE_WORK_DIR" env-default:".stackweave"`
	AWSRegion        string `env:"AWS_REGION" env-default:"us-east-1"`
	DeploymentBucket string `env:"STACKWEAVE_DEPLOYMENT_BUCKET"`
	S3Endpoint       string `env:"STACKWEAVE_S3_ENDPOINT"`
	LogFormat        string `env:"STACKWEAVE_LOG_FORMAT" env-default:"text"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return &cfg, nil
}
