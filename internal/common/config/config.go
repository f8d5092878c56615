package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Scheduler struct {
		// SweepInterval must stay much shorter than the minimum realistic
		// giveaway duration; every sweep re-evaluates all non-terminal
		// giveaways from their persisted fields alone.
		SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1s"`
		// EndingGrace is how long a giveaway may sit in the ending status
		// before a sweep re-attempts selection and commit.
		EndingGrace time.Duration `env:"ENDING_GRACE" envDefault:"30s"`
	}

	Giveaway struct {
		MinDuration time.Duration `env:"MIN_GIVEAWAY_DURATION" envDefault:"5m"`
		MaxDuration time.Duration `env:"MAX_GIVEAWAY_DURATION" envDefault:"720h"`
		MaxWinners  int           `env:"MAX_GIVEAWAY_WINNERS" envDefault:"10"`
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// Missing .env is fine; production sets variables directly.
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	// Debug mode relaxes the floor so short-lived giveaways can be
	// exercised end to end.
	if cfg.Debug {
		cfg.Giveaway.MinDuration = 5 * time.Second
	}

	return cfg
}
