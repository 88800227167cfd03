package benchmark

import (
	"fmt"
	"os"
	"slices"
	"time"

	validator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RunConfig is the resolved configuration of one run. It is written as the
// second line of the result file.
type RunConfig struct {
	Backend       string `json:"backend" yaml:"backend" validate:"required,valid_backend"`
	DataDir       string `json:"data_dir" yaml:"data_dir" validate:"required"`
	Out           string `json:"out" yaml:"out" validate:"required"`
	DisplayName   string `json:"display_name" yaml:"display_name"`
	Workload      string `json:"workload" yaml:"workload" validate:"required,valid_workload"`
	Minutes       uint64 `json:"minutes" yaml:"minutes" validate:"gt=0"`
	GranularityMs uint64 `json:"granularity_ms" yaml:"granularity_ms" validate:"gt=0"`
	CacheSize     int64  `json:"cache_size" yaml:"cache_size"` // bytes, negative disables the cache

	Threads      int     `json:"threads" yaml:"threads" validate:"gt=0"`
	Items        uint64  `json:"items" yaml:"items" validate:"gt=0"`
	ValueSize    int     `json:"value_size" yaml:"value_size" validate:"gte=0"`
	Fsync        bool    `json:"fsync" yaml:"fsync"`
	ZipfExponent float64 `json:"zipf_exponent" yaml:"zipf_exponent" validate:"gt=0"`
	Seed         int64   `json:"seed" yaml:"seed"`
	HashKeys     bool    `json:"hash_keys" yaml:"hash_keys"`

	Users     uint64 `json:"users" yaml:"users" validate:"gt=0"`
	FeedPosts int    `json:"feed_posts" yaml:"feed_posts" validate:"gt=0"`
	Retention uint64 `json:"retention" yaml:"retention" validate:"gt=0"`

	MemLimit    uint64 `json:"mem_limit" yaml:"mem_limit"` // bytes, 0 disables the guardrail
	LogFormat   string `json:"log_format" yaml:"log_format" validate:"oneof=console json"`
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr" validate:"omitempty,hostname_port"`

	// MDBX tuning
	MDBXMapSize    int64 `json:"mdbx_map_size" yaml:"mdbx_map_size"`
	MDBXMaxReaders int   `json:"mdbx_max_readers" yaml:"mdbx_max_readers" validate:"gte=0"`
	MDBXWriteMap   bool  `json:"mdbx_write_map" yaml:"mdbx_write_map"`
}

// DefaultRunConfig returns the defaults used by the run command
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Minutes:       1,
		GranularityMs: 500,
		CacheSize:     16_000_000,
		Threads:       1,
		Items:         100_000,
		ValueSize:     128,
		ZipfExponent:  0.99,
		Seed:          42,
		Users:         1_000,
		FeedPosts:     10,
		Retention:     100_000,
		MemLimit:      16 << 30,
		LogFormat:     "console",
		MDBXMapSize:   -1,
	}
}

// Duration is the wall clock budget of the run
func (c RunConfig) Duration() time.Duration {
	return time.Duration(c.Minutes) * time.Minute
}

// Granularity is the monitor sampling interval
func (c RunConfig) Granularity() time.Duration {
	return time.Duration(c.GranularityMs) * time.Millisecond
}

// Custom validation tags
const (
	backendTag  = "valid_backend"
	workloadTag = "valid_workload"
)

// RegisterCustomValidators registers the validators RunConfig depends on
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation(backendTag, validateBackend); err != nil {
		return fmt.Errorf("failed to register backend validator: %w", err)
	}
	if err := v.RegisterValidation(workloadTag, validateWorkload); err != nil {
		return fmt.Errorf("failed to register workload validator: %w", err)
	}
	return nil
}

func validateBackend(fl validator.FieldLevel) bool {
	return slices.Contains(DatabaseTypes, DatabaseType(fl.Field().String()))
}

func validateWorkload(fl validator.FieldLevel) bool {
	return slices.Contains(WorkloadTypes, WorkloadType(fl.Field().String()))
}

// Validate checks the configuration and fills DisplayName
func (c *RunConfig) Validate() error {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.DisplayName == "" {
		c.DisplayName = c.Backend
	}
	return nil
}

// LoadRunConfig reads a YAML file over cfg. Keys missing from the file keep
// the value they already have.
func LoadRunConfig(path string, cfg *RunConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// workloadConfig projects the run configuration onto the workload knobs
func (c RunConfig) workloadConfig() WorkloadConfig {
	return WorkloadConfig{
		Type:         WorkloadType(c.Workload),
		Items:        c.Items,
		ValueSize:    c.ValueSize,
		ZipfExponent: c.ZipfExponent,
		Seed:         c.Seed,
		HashKeys:     c.HashKeys,
		Durable:      c.Fsync,
		Users:        c.Users,
		FeedPosts:    c.FeedPosts,
		Retention:    c.Retention,
	}
}

func (c RunConfig) databaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Type:      DatabaseType(c.Backend),
		Path:      c.DataDir,
		CacheSize: c.CacheSize,
		MDBXConfig: MDBXConfig{
			MapSize:    c.MDBXMapSize,
			MaxReaders: c.MDBXMaxReaders,
			WriteMap:   c.MDBXWriteMap,
		},
	}
}
