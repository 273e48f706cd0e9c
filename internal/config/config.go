package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config captures the runtime configuration for the prober.
type Config struct {
	ProxyEndpoint  string         `mapstructure:"proxy_endpoint"`
	ProbeGap       time.Duration  `mapstructure:"probe_gap"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout"`
	Prompt         string         `mapstructure:"prompt"`
	MaxTokens      int32          `mapstructure:"max_tokens"`
	AWS            AWSConfig      `mapstructure:"aws"`
	Regions        []RegionConfig `mapstructure:"regions"`
}

// AWSConfig holds optional static credentials; when empty the default
// credential chain (env, shared config, instance role) applies.
type AWSConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	Profile         string `mapstructure:"profile"`
}

// RegionConfig is one row group of the probe table. Regions is a slice
// rather than a map so probes run in declaration order.
type RegionConfig struct {
	Name   string      `mapstructure:"name"`
	Models []ModelSpec `mapstructure:"models"`
}

// ModelSpec identifies a Bedrock model to probe.
type ModelSpec struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// ModelCount returns the total number of (region, model) pairs.
func (c *Config) ModelCount() int {
	total := 0
	for _, region := range c.Regions {
		total += len(region.Models)
	}
	return total
}

var regionNamePattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`)

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else {
		if cfg := os.Getenv("EDGEPROBE_CONFIG_FILE"); cfg != "" {
			v.SetConfigFile(cfg)
			explicitFile = true
		}
	}

	if !explicitFile {
		// Allow standard lookup locations when no explicit file is provided.
		v.SetConfigName("edgeprobe")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("EDGEPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Regions) == 0 {
		cfg.Regions = DefaultRegions()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set.
func (c *Config) Validate() error {
	endpoint := strings.TrimSpace(c.ProxyEndpoint)
	if endpoint == "" {
		return fmt.Errorf("proxy_endpoint must be provided (EDGEPROBE_PROXY_ENDPOINT)")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("proxy_endpoint %q must be an absolute http(s) URL", c.ProxyEndpoint)
	}
	c.ProxyEndpoint = endpoint

	if c.ProbeGap < 0 {
		return fmt.Errorf("probe_gap must be >= 0")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be >= 0")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be > 0")
	}
	if strings.TrimSpace(c.Prompt) == "" {
		return fmt.Errorf("prompt must be provided")
	}

	for i, region := range c.Regions {
		if !regionNamePattern.MatchString(region.Name) {
			return fmt.Errorf("regions[%d].name %q is not a valid AWS region identifier", i, region.Name)
		}
		if len(region.Models) == 0 {
			return fmt.Errorf("regions[%d] (%s) must list at least one model", i, region.Name)
		}
		for j, model := range region.Models {
			if strings.TrimSpace(model.ID) == "" {
				return fmt.Errorf("regions[%d].models[%d].id must be provided", i, j)
			}
			if strings.TrimSpace(model.Name) == "" {
				c.Regions[i].Models[j].Name = model.ID
			}
		}
	}
	return nil
}

// DefaultRegions is the stock probe table: the Claude models commonly
// enabled in each Bedrock region.
func DefaultRegions() []RegionConfig {
	return []RegionConfig{
		{
			Name: "us-west-2",
			Models: []ModelSpec{
				{ID: "anthropic.claude-3-5-sonnet-20240620-v1:0", Name: "Claude 3.5 Sonnet"},
				{ID: "us.anthropic.claude-sonnet-4-5-20250929-v1:0", Name: "Claude Sonnet 4.5"},
			},
		},
		{
			Name: "us-east-1",
			Models: []ModelSpec{
				{ID: "anthropic.claude-3-haiku-20240307-v1:0", Name: "Claude 3 Haiku"},
			},
		},
		{
			Name: "ap-northeast-1",
			Models: []ModelSpec{
				{ID: "anthropic.claude-3-5-sonnet-20240620-v1:0", Name: "Claude 3.5 Sonnet"},
			},
		},
		{
			Name: "eu-west-1",
			Models: []ModelSpec{
				{ID: "anthropic.claude-3-haiku-20240307-v1:0", Name: "Claude 3 Haiku"},
			},
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("probe_gap", "300ms")
	v.SetDefault("request_timeout", "0s")
	v.SetDefault("prompt", "Hello")
	v.SetDefault("max_tokens", 50)

	// Registered so AutomaticEnv can surface them during Unmarshal.
	v.SetDefault("proxy_endpoint", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.session_token", "")
	v.SetDefault("aws.profile", "")
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
