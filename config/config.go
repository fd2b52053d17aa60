// Package config loads scheduler and fiber configuration from an
// optional YAML file plus environment variable overrides; it has no
// monitor settings. Defaults in
// code, with os.Getenv overrides layered on top, plus a YAML base layer
// underneath so a deployment can ship one config file instead of a wall
// of environment variables.
package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v2"

	"github.com/hobbes-aerokernel/aerosched/fiber"
	"github.com/hobbes-aerokernel/aerosched/sched"
)

// Config is the top-level configuration for one aerosched instance.
type Config struct {
	NumCPUs int `yaml:"num_cpus"`

	Sched sched.Config `yaml:"-"`
	Fiber FiberConfig  `yaml:"fiber"`

	raw rawConfig
}

// FiberConfig mirrors the handful of fiber.Scheduler knobs worth
// exposing; fiber itself has no Config type since it has no admission
// policy to tune, only run-queue capacity.
type FiberConfig struct {
	QueueCapacity int `yaml:"queue_capacity"`
}

// rawConfig is the literal YAML/env shape; it exists separately from
// sched.Config because YAML field names and uint64-as-string env
// overrides are a config-layer concern, not the scheduler's.
type rawConfig struct {
	NumCPUs int `yaml:"num_cpus"`

	UtilLimit                uint64 `yaml:"util_limit"`
	SporadicReservation      uint64 `yaml:"sporadic_reservation"`
	AperiodicReservation     uint64 `yaml:"aperiodic_reservation"`
	AperiodicQuantumNS       uint64 `yaml:"aperiodic_quantum_ns"`
	AperiodicDefaultPriority uint64 `yaml:"aperiodic_default_priority"`
	AperiodicPolicy          string `yaml:"aperiodic_policy"` // round_robin | lottery | dynamic
	DynamicMode              string `yaml:"dynamic_mode"`     // lifetime | quantum
	SlackNS                  uint64 `yaml:"slack_ns"`
	InterruptThreadModel     bool   `yaml:"interrupt_thread_model"`
	MaxQueueSize             int    `yaml:"max_queue_size"`

	Fiber FiberConfig `yaml:"fiber"`
}

func defaultRaw() rawConfig {
	sc := sched.DefaultConfig()
	return rawConfig{
		NumCPUs:                  4,
		UtilLimit:                sc.UtilLimit,
		SporadicReservation:      sc.SporadicReservation,
		AperiodicReservation:     sc.AperiodicReservation,
		AperiodicQuantumNS:       sc.AperiodicQuantumNS,
		AperiodicDefaultPriority: sc.AperiodicDefaultPriority,
		AperiodicPolicy:          "dynamic",
		DynamicMode:              "quantum",
		SlackNS:                  sc.SlackNS,
		InterruptThreadModel:     true,
		MaxQueueSize:             sc.MaxQueueSize,
		Fiber:                    FiberConfig{QueueCapacity: 4096},
	}
}

// Load builds a Config starting from defaults, overlaying a YAML file
// at path (if non-empty and present), then overlaying environment
// variables (AEROSCHED_*), matching the layering order
// control_plane/main.go uses for its own scheduler knobs.
func Load(path string) (*Config, error) {
	raw := defaultRaw()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &raw); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&raw)

	cfg := &Config{
		NumCPUs: raw.NumCPUs,
		Fiber:   raw.Fiber,
		raw:     raw,
	}
	cfg.Sched = sched.Config{
		UtilLimit:                raw.UtilLimit,
		SporadicReservation:      raw.SporadicReservation,
		AperiodicReservation:     raw.AperiodicReservation,
		AperiodicQuantumNS:       raw.AperiodicQuantumNS,
		AperiodicDefaultPriority: raw.AperiodicDefaultPriority,
		AperiodicPolicy:          parsePolicy(raw.AperiodicPolicy),
		DynamicMode:              parseDynamicMode(raw.DynamicMode),
		SlackNS:                  raw.SlackNS,
		InterruptThreadModel:     raw.InterruptThreadModel,
		MaxQueueSize:             raw.MaxQueueSize,
	}
	return cfg, nil
}

func parsePolicy(s string) sched.AperiodicPolicyKind {
	switch s {
	case "round_robin":
		return sched.RoundRobin
	case "lottery":
		return sched.Lottery
	default:
		return sched.Dynamic
	}
}

func parseDynamicMode(s string) sched.DynamicMode {
	if s == "lifetime" {
		return sched.DynamicLifetime
	}
	return sched.DynamicQuantum
}

// applyEnvOverrides mirrors control_plane/main.go's pattern: check
// os.Getenv and only override on a non-empty value. Numeric values are
// parsed with Sscanf and applied only when they parse; the policy and
// mode strings and the interrupt-thread flag take any non-empty value.
func applyEnvOverrides(raw *rawConfig) {
	if v := os.Getenv("AEROSCHED_NUM_CPUS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			raw.NumCPUs = n
		}
	}
	if v := os.Getenv("AEROSCHED_APERIODIC_POLICY"); v != "" {
		raw.AperiodicPolicy = v
	}
	if v := os.Getenv("AEROSCHED_DYNAMIC_MODE"); v != "" {
		raw.DynamicMode = v
	}
	if v := os.Getenv("AEROSCHED_APERIODIC_QUANTUM_NS"); v != "" {
		var n uint64
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			raw.AperiodicQuantumNS = n
		}
	}
	if v := os.Getenv("AEROSCHED_SLACK_NS"); v != "" {
		var n uint64
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			raw.SlackNS = n
		}
	}
	if v := os.Getenv("AEROSCHED_INTERRUPT_THREAD_MODEL"); v != "" {
		raw.InterruptThreadModel = v == "1" || v == "true"
	}
	if v := os.Getenv("AEROSCHED_MAX_QUEUE_SIZE"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			raw.MaxQueueSize = n
		}
	}
}

// NewFiberScheduler builds a fiber.Scheduler per this config's FiberConfig.
func (c *Config) NewFiberScheduler() *fiber.Scheduler {
	capacity := c.Fiber.QueueCapacity
	if capacity <= 0 {
		capacity = 4096
	}
	return fiber.NewScheduler(c.NumCPUs, capacity)
}
