package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dhabedank/promptbench/internal/api"
	"github.com/dhabedank/promptbench/internal/core"
	"github.com/dhabedank/promptbench/internal/llm"
	"github.com/dhabedank/promptbench/internal/session"
)

// ConfigFileName is looked up in the working directory, then in $HOME.
const ConfigFileName = ".promptbench.yaml"

// Backend values.
const (
	BackendRemote = "remote"
	BackendDirect = "direct"
)

// Persistent flags shared by every command.
var (
	configFile   string
	verbose      bool
	logJSON      bool
	apiURL       string
	apiToken     string
	backendName  string
	outputFormat string
	outputPath   string
)

// Config is the merged configuration: defaults < file < PROMPTBENCH_* env < flags.
type Config struct {
	APIURL            string        `mapstructure:"api_url" yaml:"api_url,omitempty"`
	Token             string        `mapstructure:"token" yaml:"token,omitempty"`
	Backend           string        `mapstructure:"backend" yaml:"backend,omitempty"`
	Model             string        `mapstructure:"model" yaml:"model,omitempty"`
	BenchModels       []string      `mapstructure:"bench_models" yaml:"bench_models,omitempty"`
	MaxVariants       int           `mapstructure:"max_variants" yaml:"max_variants,omitempty"`
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency,omitempty"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout,omitempty"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second,omitempty"`
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay,omitempty"`
	CacheSize         int           `mapstructure:"cache_size" yaml:"cache_size,omitempty"`
	Output            string        `mapstructure:"output" yaml:"output,omitempty"`
	PreferCLI         bool          `mapstructure:"prefer_cli" yaml:"prefer_cli,omitempty"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	AnthropicAPIKey   string        `mapstructure:"anthropic_api_key" yaml:"anthropic_api_key,omitempty"`
	OpenAIAPIKey      string        `mapstructure:"openai_api_key" yaml:"openai_api_key,omitempty"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key" yaml:"gemini_api_key,omitempty"`

	// Path of the file the values were read from, empty when none was found.
	Path string `mapstructure:"-" yaml:"-"`
}

// BindGlobalFlags installs the persistent flags on the root command.
func BindGlobalFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVar(&configFile, "config", "", "Config file (default: ./"+ConfigFileName+" then ~/"+ConfigFileName+")")
	f.BoolVar(&verbose, "verbose", false, "Log debug diagnostics to stderr")
	f.BoolVar(&logJSON, "log-json", false, "Log as JSON")
	f.StringVar(&apiURL, "api-url", "", "Base URL of the prompt API")
	f.StringVar(&apiToken, "token", "", "Bearer token for the prompt API")
	f.StringVar(&backendName, "backend", "", "Execution backend (remote/direct)")
	f.StringVarP(&outputFormat, "output", "o", "", "Output format (table/json/yaml)")
	f.StringVar(&outputPath, "output-path", "", "Write the report to a file")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", api.DefaultBaseURL)
	v.SetDefault("token", "")
	v.SetDefault("backend", BackendRemote)
	v.SetDefault("model", llm.DefaultModel)
	v.SetDefault("bench_models", []string{})
	v.SetDefault("max_variants", core.MaxBatchSize)
	v.SetDefault("concurrency", 0)
	v.SetDefault("request_timeout", time.Duration(0))
	v.SetDefault("requests_per_second", 0.0)
	v.SetDefault("settle_delay", session.DefaultSettleDelay)
	v.SetDefault("cache_size", session.DefaultCacheSize)
	v.SetDefault("output", "table")
	v.SetDefault("prefer_cli", false)
	v.SetDefault("max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("gemini_api_key", "")
}

// findConfigFile returns explicit if set, else the first existing default location.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	if home, err := os.UserHomeDir(); err == nil {
		homePath := filepath.Join(home, ConfigFileName)
		if _, err := os.Stat(homePath); err == nil {
			return homePath
		}
	}
	return ""
}

// LoadConfig reads path (or the default locations) and the environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROMPTBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	path = findConfigFile(path)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	cfg.Path = path
	return &cfg, nil
}

// applyFlags overrides config values with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = apiURL
	}
	if flags.Changed("token") {
		cfg.Token = apiToken
	}
	if flags.Changed("backend") {
		cfg.Backend = backendName
	}
	if flags.Changed("output") {
		cfg.Output = outputFormat
	}
	if flags.Lookup("model") != nil && flags.Changed("model") {
		cfg.Model, _ = flags.GetString("model")
	}
	if flags.Lookup("concurrency") != nil && flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Lookup("timeout") != nil && flags.Changed("timeout") {
		cfg.RequestTimeout, _ = flags.GetDuration("timeout")
	}
}

// validate rejects values no command can work with.
func (c *Config) validate() error {
	switch c.Backend {
	case BackendRemote, BackendDirect:
	default:
		return errors.WithHint(errors.Newf("unknown backend %q", c.Backend), "use remote or direct")
	}
	if c.MaxVariants < 1 {
		return errors.Newf("max_variants must be at least 1, got %d", c.MaxVariants)
	}
	if c.Concurrency < 0 {
		return errors.Newf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

// saveConfig writes cfg as YAML, omitting empty values.
func saveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0600), "failed to write config")
}

// userConfigPath is where setup writes by default.
func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ConfigFileName
	}
	return filepath.Join(home, ConfigFileName)
}
