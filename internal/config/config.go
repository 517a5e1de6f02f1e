// Package config loads service configuration from an optional YAML file
// with environment variable overrides. Env always wins, so deployments
// can ship a base file and tune per-instance via the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tripsolver/internal/plan"
)

type Config struct {
	Port        string  `yaml:"port"`
	DatabaseURL string  `yaml:"databaseUrl"`
	RedisURL    string  `yaml:"redisUrl"`
	RateRPS     float64 `yaml:"rateRps"`
	RateBurst   int     `yaml:"rateBurst"`

	Solver SolverConfig `yaml:"solver"`
}

// SolverConfig is the tunable subset of the planner configuration. Zero
// values fall back to the planner defaults.
type SolverConfig struct {
	TimeBudgetMs       int     `yaml:"timeBudgetMs"`
	GroundThresholdKm  float64 `yaml:"groundThresholdKm"`
	RoadSpeedKph       float64 `yaml:"roadSpeedKph"`
	GroundCostPerKm    float64 `yaml:"groundCostPerKm"`
	LayoverOverheadMin float64 `yaml:"layoverOverheadMin"`
}

// Load reads CONFIG_FILE if set, then applies env overrides. A missing
// file is only an error when CONFIG_FILE names it explicitly.
func Load() (Config, error) {
	cfg := Config{Port: "8080", RateRPS: 50, RateBurst: 100}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateRPS = f
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateBurst = n
		}
	}
	if v := os.Getenv("SOLVE_TIME_BUDGET_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.TimeBudgetMs = n
		}
	}
	return cfg, nil
}

// PlanConfig maps the solver section onto the planner defaults.
func (c Config) PlanConfig() plan.Config {
	pc := plan.DefaultConfig()
	if c.Solver.TimeBudgetMs > 0 {
		pc.TimeBudget = time.Duration(c.Solver.TimeBudgetMs) * time.Millisecond
	}
	if c.Solver.GroundThresholdKm > 0 {
		pc.GroundThresholdKm = c.Solver.GroundThresholdKm
	}
	if c.Solver.RoadSpeedKph > 0 {
		pc.RoadSpeedKph = c.Solver.RoadSpeedKph
	}
	if c.Solver.GroundCostPerKm > 0 {
		pc.GroundCostPerKm = c.Solver.GroundCostPerKm
	}
	if c.Solver.LayoverOverheadMin > 0 {
		pc.LayoverOverheadMin = c.Solver.LayoverOverheadMin
	}
	return pc
}
