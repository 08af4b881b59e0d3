// Package config loads daemon configuration from the environment.
package config

import (
	"log"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	API struct {
		Port       int `env:"PORT" envDefault:"7070"`
		MaxWorkers int `env:"MAX_WORKERS" envDefault:"16"`
	}
	App struct {
		LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
		MetricsPort int    `env:"METRICS_PORT" envDefault:"9010"`
	}
	Engine struct {
		Owner          string `env:"ENGINE_OWNER" envDefault:"owner"`
		Custodian      string `env:"ENGINE_CUSTODIAN" envDefault:"settlement-engine"`
		FeeBasisPoints uint32 `env:"FEE_BASIS_POINTS" envDefault:"250"`
		Version        string `env:"ENGINE_VERSION" envDefault:"v1"`
	}
}

func Load() Config {
	var c Config
	if err := env.Parse(&c); err != nil {
		log.Panicf("config parsing failed: %v", err)
	}
	return c
}
