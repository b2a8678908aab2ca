package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Remote struct {
		BaseURL           string  `yaml:"base_url"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"remote"`

	Polling struct {
		ResultsSeconds int `yaml:"results_seconds"`
		MaxAttempts    int `yaml:"max_attempts"`
		RefreshSeconds int `yaml:"refresh_seconds"`
	} `yaml:"polling"`

	History struct {
		Limit int `yaml:"limit"`
	} `yaml:"history"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
