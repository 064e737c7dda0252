package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	Server   ServerConfig  `mapstructure:"server"`
	Jobs     JobsConfig    `mapstructure:"jobs"`
	Limits   LimitsConfig  `mapstructure:"limits"`
	Engine   EngineConfig  `mapstructure:"engine"`
	Catalog  CatalogConfig `mapstructure:"catalog"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type JobsConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
	TTLSeconds    int `mapstructure:"ttl_seconds"`
	PruneInterval int `mapstructure:"prune_interval"`
}

type LimitsConfig struct {
	MaxTextLength    int `mapstructure:"max_text_length"`
	MaxInstructLen   int `mapstructure:"max_instruct_length"`
	MaxRefTextLen    int `mapstructure:"max_ref_text_length"`
	MaxAudioUploadMB int `mapstructure:"max_audio_upload_mb"`
	MaxCloneTexts    int `mapstructure:"max_clone_texts"`
}

type EngineConfig struct {
	Backend       string `mapstructure:"backend"`
	CLIPath       string `mapstructure:"cli_path"`
	CLIConfigPath string `mapstructure:"cli_config_path"`
	Quiet         bool   `mapstructure:"quiet"`
}

type CatalogConfig struct {
	ManifestPath string `mapstructure:"manifest_path"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      ":8100",
			ShutdownTimeout: 30,
		},
		Jobs: JobsConfig{
			MaxConcurrent: 4,
			TTLSeconds:    3600,
			PruneInterval: 60,
		},
		Limits: LimitsConfig{
			MaxTextLength:    10_000,
			MaxInstructLen:   2000,
			MaxRefTextLen:    5000,
			MaxAudioUploadMB: 25,
			MaxCloneTexts:    20,
		},
		Engine: EngineConfig{
			Backend:       BackendMock,
			CLIPath:       "",
			CLIConfigPath: "",
			Quiet:         true,
		},
		Catalog: CatalogConfig{
			ManifestPath: "",
		},
	}
}

// MaxAudioUploadBytes converts the configured megabyte cap into bytes.
func (l LimitsConfig) MaxAudioUploadBytes() int {
	return l.MaxAudioUploadMB * 1024 * 1024
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
	fs.Int("jobs-max-concurrent", defaults.Jobs.MaxConcurrent, "Max concurrent synthesis jobs")
	fs.Int("jobs-ttl-seconds", defaults.Jobs.TTLSeconds, "Retention window for terminal jobs in seconds")
	fs.Int("jobs-prune-interval", defaults.Jobs.PruneInterval, "Interval between prune passes in seconds")
	fs.Int("limits-max-text-length", defaults.Limits.MaxTextLength, "Max characters per text field")
	fs.Int("limits-max-instruct-length", defaults.Limits.MaxInstructLen, "Max characters per style instruction")
	fs.Int("limits-max-ref-text-length", defaults.Limits.MaxRefTextLen, "Max characters for reference transcripts")
	fs.Int("limits-max-audio-upload-mb", defaults.Limits.MaxAudioUploadMB, "Max reference audio upload size in MB")
	fs.Int("limits-max-clone-texts", defaults.Limits.MaxCloneTexts, "Max entries in clone_texts")
	fs.String("engine-backend", defaults.Engine.Backend, "Synthesis backend (mock|cli)")
	fs.String("engine-cli-path", defaults.Engine.CLIPath, "Path to external TTS executable")
	fs.String("engine-cli-config-path", defaults.Engine.CLIConfigPath, "Path to external TTS config file")
	fs.Bool("engine-quiet", defaults.Engine.Quiet, "Pass --quiet to the external TTS executable")
	fs.String("catalog-manifest-path", defaults.Catalog.ManifestPath, "Optional speaker manifest JSON path")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("TTSSTUDIO")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("ttsstudio")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("jobs.max_concurrent", c.Jobs.MaxConcurrent)
	v.SetDefault("jobs.ttl_seconds", c.Jobs.TTLSeconds)
	v.SetDefault("jobs.prune_interval", c.Jobs.PruneInterval)
	v.SetDefault("limits.max_text_length", c.Limits.MaxTextLength)
	v.SetDefault("limits.max_instruct_length", c.Limits.MaxInstructLen)
	v.SetDefault("limits.max_ref_text_length", c.Limits.MaxRefTextLen)
	v.SetDefault("limits.max_audio_upload_mb", c.Limits.MaxAudioUploadMB)
	v.SetDefault("limits.max_clone_texts", c.Limits.MaxCloneTexts)
	v.SetDefault("engine.backend", c.Engine.Backend)
	v.SetDefault("engine.cli_path", c.Engine.CLIPath)
	v.SetDefault("engine.cli_config_path", c.Engine.CLIConfigPath)
	v.SetDefault("engine.quiet", c.Engine.Quiet)
	v.SetDefault("catalog.manifest_path", c.Catalog.ManifestPath)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("log_level", "log-level")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.shutdown_timeout", "server-shutdown-timeout")
	v.RegisterAlias("jobs.max_concurrent", "jobs-max-concurrent")
	v.RegisterAlias("jobs.ttl_seconds", "jobs-ttl-seconds")
	v.RegisterAlias("jobs.prune_interval", "jobs-prune-interval")
	v.RegisterAlias("limits.max_text_length", "limits-max-text-length")
	v.RegisterAlias("limits.max_instruct_length", "limits-max-instruct-length")
	v.RegisterAlias("limits.max_ref_text_length", "limits-max-ref-text-length")
	v.RegisterAlias("limits.max_audio_upload_mb", "limits-max-audio-upload-mb")
	v.RegisterAlias("limits.max_clone_texts", "limits-max-clone-texts")
	v.RegisterAlias("engine.backend", "engine-backend")
	v.RegisterAlias("engine.cli_path", "engine-cli-path")
	v.RegisterAlias("engine.cli_config_path", "engine-cli-config-path")
	v.RegisterAlias("engine.quiet", "engine-quiet")
	v.RegisterAlias("catalog.manifest_path", "catalog-manifest-path")
}
