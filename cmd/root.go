package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "recruiter"
)

type Config struct {
	AI      *AIConfig      `mapstructure:"ai" validate:"required"`
	Adzuna  *AdzunaConfig  `mapstructure:"adzuna" validate:"required"`
	Matcher *MatcherConfig `mapstructure:"matcher" validate:"required"`
	Results *ResultsConfig `mapstructure:"results" validate:"required"`
	Server  *ServerConfig  `mapstructure:"server" validate:"required"`
}

type AIConfig struct {
	Provider       string        `mapstructure:"provider" validate:"oneof=gemini proxy"`
	MaxRetries     int           `mapstructure:"max-retries" validate:"gte=1,lte=10"`
	RetryBaseDelay time.Duration `mapstructure:"retry-base-delay" validate:"gte=0"`
	RetryMaxDelay  time.Duration `mapstructure:"retry-max-delay" validate:"gte=0"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxLogLength   int           `mapstructure:"max-log-length" validate:"gte=0"`
	// StrictParsing validates analysis output against a JSON schema.
	StrictParsing bool          `mapstructure:"strict-parsing"`
	Gemini        *GeminiConfig `mapstructure:"gemini"`
	Proxy         *ProxyConfig  `mapstructure:"proxy"`
}

type GeminiConfig struct {
	APIKey      string  `mapstructure:"api-key" json:"-"`
	APIKeyFile  string  `mapstructure:"api-key-file"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

type ProxyConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

type AdzunaConfig struct {
	AppID      string        `mapstructure:"app-id" json:"-"`
	AppIDFile  string        `mapstructure:"app-id-file"`
	AppKey     string        `mapstructure:"app-key" json:"-"`
	AppKeyFile string        `mapstructure:"app-key-file"`
	APIURL     string        `mapstructure:"api-url" validate:"omitempty,url"`
	Country    string        `mapstructure:"country" validate:"omitempty,len=2"`
	Location   string        `mapstructure:"location"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type MatcherConfig struct {
	// Parallelism bounds concurrent side queries.
	Parallelism int `mapstructure:"parallelism" validate:"gte=1,lte=32"`
}

type ResultsConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format" validate:"oneof=json yaml yml"`
}

type ServerConfig struct {
	Port      string `mapstructure:"port"`
	UploadDir string `mapstructure:"upload-dir"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "recruiter runs a resume through extraction, analysis, job matching, screening and recommendation",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	envs := map[string]string{
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.proxy.url":           "GEMINI_PROXY_URL",
		"adzuna.app-id-file":     "ADZUNA_APP_ID_FILE",
		"adzuna.app-key-file":    "ADZUNA_APP_KEY_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetEnvPrefix(strings.ToUpper(app))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is recruiter.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.max-retries", 3)
	v.SetDefault("ai.retry-base-delay", time.Second)
	v.SetDefault("ai.retry-max-delay", 30*time.Second)
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.strict-parsing", false)
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.temperature", 0.3)
	v.SetDefault("ai.proxy.url", "")

	v.SetDefault("adzuna.country", "in")
	v.SetDefault("adzuna.location", "India")
	v.SetDefault("adzuna.timeout", 10*time.Second)

	v.SetDefault("matcher.parallelism", 4)

	v.SetDefault("results.dir", "results")
	v.SetDefault("results.format", "json")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.upload-dir", "")
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	// .env is optional.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Running on defaults and environment is fine unless a file was asked for.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		return nil, errors.New("config is empty")
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.AI.Provider == "proxy" && (config.AI.Proxy == nil || config.AI.Proxy.URL == "") {
		return nil, errors.New("invalid config: ai.proxy.url is required for the proxy provider")
	}

	return config, nil
}
