package authzserver

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration of the whole server process. Clients and
// users are loaded once at startup and never mutated afterwards.
type Config struct {
	Address             string   `yaml:"address" validate:"required"`
	Issuer              string   `yaml:"issuer" validate:"required"`
	SignPrivateKeyPath  string   `yaml:"sign_private_key_path" validate:"required"`
	VerifyPublicKeyPath string   `yaml:"verify_public_key_path" validate:"required"`
	UpstreamURL         string   `yaml:"upstream_url" validate:"required,url"`
	Clients             []Client `yaml:"clients" validate:"required,dive"`
	Users               []User   `yaml:"users" validate:"required,dive"`
}

func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file '%s': %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config file '%s': %w", path, err)
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &config, nil
}
