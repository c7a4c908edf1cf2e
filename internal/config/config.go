package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"fleetplan/internal/opt"
)

// Config stores all configuration of the application.
// The values are read by viper from an optional app.env file or environment
// variables; every key has a default so neither is required.
type Config struct {
	Environment       string        `mapstructure:"ENVIRONMENT"`
	HTTPServerAddress string        `mapstructure:"HTTP_SERVER_ADDRESS"`
	AllowOrigins      string        `mapstructure:"ALLOW_ORIGINS"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMigrate         bool          `mapstructure:"DB_MIGRATE"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	RateRPS           float64       `mapstructure:"RATE_RPS"`
	RateBurst         int           `mapstructure:"RATE_BURST"`
	MaxBodyBytes      int64         `mapstructure:"MAX_BODY_BYTES"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Solver defaults; requests and per-scenario config override them
	SolverAlgorithm       string        `mapstructure:"SOLVER_ALGORITHM"`
	SolverTimeBudget      time.Duration `mapstructure:"SOLVER_TIME_BUDGET"`
	SolverMaxIterations   int           `mapstructure:"SOLVER_MAX_ITERATIONS"`
	SolverStagnationLimit int           `mapstructure:"SOLVER_STAGNATION_LIMIT"`
	SolverNodeBudget      int           `mapstructure:"SOLVER_NODE_BUDGET"`
	SolverSeed            int64         `mapstructure:"SOLVER_SEED"`
	SolverFixedWeights    bool          `mapstructure:"SOLVER_FIXED_WEIGHTS"`
}

func setDefaults(v *viper.Viper) {
	d := opt.DefaultParams()
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("HTTP_SERVER_ADDRESS", ":8080")
	v.SetDefault("ALLOW_ORIGINS", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_RPS", 2.0)
	v.SetDefault("RATE_BURST", 4)
	v.SetDefault("MAX_BODY_BYTES", 8<<20)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("SOLVER_ALGORITHM", d.Algorithm)
	v.SetDefault("SOLVER_TIME_BUDGET", d.TimeBudget)
	v.SetDefault("SOLVER_MAX_ITERATIONS", d.MaxIterations)
	v.SetDefault("SOLVER_STAGNATION_LIMIT", d.StagnationLimit)
	v.SetDefault("SOLVER_NODE_BUDGET", 0)
	v.SetDefault("SOLVER_SEED", 0)
	v.SetDefault("SOLVER_FIXED_WEIGHTS", false)
}

// LoadConfig reads configuration from path/app.env (if present) and the
// environment, environment winning.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return
	}
	config.RedisURL = trimOptionalQuotes(config.RedisURL)
	config.DatabaseURL = trimOptionalQuotes(config.DatabaseURL)
	return
}

// SolverParams returns the service-wide solver defaults.
func (c Config) SolverParams() opt.Params {
	p := opt.DefaultParams()
	if c.SolverAlgorithm != "" {
		p.Algorithm = c.SolverAlgorithm
	}
	if c.SolverTimeBudget > 0 {
		p.TimeBudget = c.SolverTimeBudget
	}
	if c.SolverMaxIterations > 0 {
		p.MaxIterations = c.SolverMaxIterations
	}
	if c.SolverStagnationLimit > 0 {
		p.StagnationLimit = c.SolverStagnationLimit
	}
	p.NodeBudget = c.SolverNodeBudget
	p.Seed = c.SolverSeed
	p.FixedWeights = c.SolverFixedWeights
	return p
}

// Origins splits ALLOW_ORIGINS on commas.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func trimOptionalQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\"")
	s = strings.TrimSuffix(s, "\"")
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, "'")
	return s
}
