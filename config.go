package failover

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"
)

type (
	// configFile is the top-level document of a configuration file.
	configFile struct {
		Strategies map[string]StrategyConfig  `json:"strategies" toml:"strategies"`
		Caches     map[string]cacheConfigJSON `json:"caches,omitempty" toml:"caches"`
	}

	// StrategyConfig holds the decoded configuration for one failover
	// strategy. Embed it in your own app config for JSON, TOML or YAML
	// unmarshaling, then call [BuildOptions] and [StrategyConfig.CandidateList].
	StrategyConfig struct {
		// CircuitBreaker enables one breaker per candidate.
		// Optional. Example: {"failure_threshold": 5}.
		CircuitBreaker *CircuitBreakerConfig `json:"circuit_breaker,omitempty" toml:"circuit_breaker" yaml:"circuit_breaker,omitempty"`
		// RateLimit throttles invocations.
		// Optional. Example: {"rate": 20, "burst": 5}.
		RateLimit *RateLimitConfig `json:"rate_limit,omitempty" toml:"rate_limit" yaml:"rate_limit,omitempty"`
		// AttemptTimeout bounds every attempt.
		// Optional. Parsed via time.ParseDuration. Example: "5s".
		AttemptTimeout *string `json:"attempt_timeout,omitempty" toml:"attempt_timeout" yaml:"attempt_timeout,omitempty"`
		// Candidates are the base addresses in trial order.
		// Required. Example: ["http://primary/api", "http://backup/api"].
		Candidates []string `json:"candidates" toml:"candidates" yaml:"candidates"`
		// StopOnPermanent ends an invocation on errors marked permanent.
		// Optional. Default false.
		StopOnPermanent bool `json:"stop_on_permanent,omitempty" toml:"stop_on_permanent" yaml:"stop_on_permanent,omitempty"`
	}

	// CircuitBreakerConfig holds per-candidate circuit breaker settings.
	CircuitBreakerConfig struct {
		// RecoveryTimeout is the duration a breaker stays open.
		// Optional. Parsed via time.ParseDuration. Example: "30s".
		RecoveryTimeout *string `json:"recovery_timeout,omitempty" toml:"recovery_timeout" yaml:"recovery_timeout,omitempty"`
		// FailureThreshold is the number of failures before opening.
		// Optional. Example: 5.
		FailureThreshold *int `json:"failure_threshold,omitempty" toml:"failure_threshold" yaml:"failure_threshold,omitempty"`
		// HalfOpenMaxAttempts is the number of successful trial attempts needed to close.
		// Optional. Example: 2.
		HalfOpenMaxAttempts *int `json:"half_open_max_attempts,omitempty" toml:"half_open_max_attempts" yaml:"half_open_max_attempts,omitempty"`
	}

	// RateLimitConfig holds invocation rate limit settings.
	RateLimitConfig struct {
		// Rate is the number of invocations allowed per second.
		// Required. Example: 20.
		Rate float64 `json:"rate" toml:"rate" yaml:"rate"`
		// Burst is the bucket size. Optional, defaults to 1.
		Burst int `json:"burst,omitempty" toml:"burst" yaml:"burst,omitempty"`
		// Blocking waits for a token instead of rejecting.
		Blocking bool `json:"blocking,omitempty" toml:"blocking" yaml:"blocking,omitempty"`
	}
)

// LoadConfig reads a JSON or TOML (by ".toml" extension) configuration file,
// validates it against the embedded schema and stores the strategy
// configurations in a [Registry]. Strategies are not created until
// [GetStrategy] is called, so callers can add code-level options such as
// hooks.
func LoadConfig(path string) (*Registry, error) {
	cfg, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	// Validate all strategies eagerly so errors surface at load time.
	for name, sc := range cfg.Strategies {
		if _, listErr := sc.CandidateList(); listErr != nil {
			return nil, fmt.Errorf("failover: strategy %q: %w", name, listErr)
		}

		if _, buildErr := BuildOptions(&sc); buildErr != nil {
			return nil, fmt.Errorf("failover: strategy %q: %w", name, buildErr)
		}
	}

	reg := NewRegistry()
	reg.mu.Lock()
	reg.configs = cfg.Strategies
	reg.mu.Unlock()

	return reg, nil
}

// readConfigFile decodes path into a configFile after schema validation.
func readConfigFile(path string) (*configFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failover: read config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if data, err = tomlToJSON(data); err != nil {
			return nil, fmt.Errorf("failover: parse config: %w", err)
		}
	}

	var doc any
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failover: parse config: %w", err)
	}

	if err = validateConfigDocument(doc); err != nil {
		return nil, fmt.Errorf("failover: invalid config: %w", err)
	}

	var cfg configFile
	if err = json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failover: parse config: %w", err)
	}

	return &cfg, nil
}

// tomlToJSON re-encodes a TOML document as JSON so that both formats share
// schema validation and decoding.
func tomlToJSON(data []byte) ([]byte, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("toml: re-encode: %w", err)
	}

	return out, nil
}

// CandidateList builds the configured [CandidateList].
func (sc *StrategyConfig) CandidateList() (*CandidateList, error) {
	return NewCandidateList(sc.Candidates...)
}

// BuildOptions converts a [StrategyConfig] into options for [NewStrategy].
func BuildOptions(sc *StrategyConfig) ([]Option, error) {
	var opts []Option

	if sc.AttemptTimeout != nil {
		d, err := time.ParseDuration(*sc.AttemptTimeout)
		if err != nil {
			return nil, fmt.Errorf("attempt_timeout: %w", err)
		}

		opts = append(opts, WithAttemptTimeout(d))
	}

	if sc.StopOnPermanent {
		opts = append(opts, StopOnPermanent())
	}

	if sc.CircuitBreaker != nil {
		cbOpts, err := buildCircuitBreakerOptions(sc.CircuitBreaker)
		if err != nil {
			return nil, err
		}

		opts = append(opts, WithCircuitBreaker(cbOpts...))
	}

	if rl := sc.RateLimit; rl != nil {
		if rl.Rate <= 0 {
			return nil, fmt.Errorf("rate_limit.rate: must be positive, got %v", rl.Rate)
		}

		var rlOpts []RateLimitOption
		if rl.Blocking {
			rlOpts = append(rlOpts, RateLimitBlocking())
		}

		opts = append(opts, WithRateLimit(rl.Rate, rl.Burst, rlOpts...))
	}

	return opts, nil
}

func buildCircuitBreakerOptions(cb *CircuitBreakerConfig) ([]CircuitBreakerOption, error) {
	var cbOpts []CircuitBreakerOption

	if cb.FailureThreshold != nil {
		cbOpts = append(cbOpts, FailureThreshold(*cb.FailureThreshold))
	}

	if cb.RecoveryTimeout != nil {
		d, err := time.ParseDuration(*cb.RecoveryTimeout)
		if err != nil {
			return nil, fmt.Errorf("circuit_breaker.recovery_timeout: %w", err)
		}

		cbOpts = append(cbOpts, RecoveryTimeout(d))
	}

	if cb.HalfOpenMaxAttempts != nil {
		cbOpts = append(cbOpts, HalfOpenMaxAttempts(*cb.HalfOpenMaxAttempts))
	}

	return cbOpts, nil
}

// GetStrategy builds the named strategy from a config-loaded [Registry].
// The strategy registers with reg. User-provided opts are applied after the
// config options, so they take precedence.
func GetStrategy(reg *Registry, name string, opts ...Option) (*Strategy, error) {
	reg.mu.Lock()
	sc, ok := reg.configs[name]
	reg.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("failover: strategy %q not found in config", name)
	}

	candidates, err := sc.CandidateList()
	if err != nil {
		return nil, fmt.Errorf("failover: strategy %q: %w", name, err)
	}

	configOpts, err := BuildOptions(&sc)
	if err != nil {
		return nil, fmt.Errorf("failover: strategy %q: %w", name, err)
	}

	allOpts := make([]Option, 0, len(configOpts)+len(opts)+1)
	allOpts = append(allOpts, WithRegistry(reg))
	allOpts = append(allOpts, configOpts...)
	allOpts = append(allOpts, opts...)

	return NewStrategy(name, candidates, allOpts...), nil
}
