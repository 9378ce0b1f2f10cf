package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	dirName    = ".star-vault"
	fileName   = "config.json"
	configType = "json"
	envPrefix  = "STAR_VAULT"
)

// Keys persisted in the config file.
const (
	KeyGitHubToken = "github_token"
	KeyOutputDir   = "output_dir"
	KeyJSONDir     = "json_dir"
	KeyMarkdownDir = "markdown_dir"
	KeyPandoc      = "pandoc"
	KeyLLMBaseURL  = "llm_base_url"
	KeyLLMAPIKey   = "llm_api_key"
	KeyLLMModel    = "llm_model"
)

const (
	DefaultPandoc     = "pandoc"
	DefaultLLMBaseURL = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
)

type Config struct {
	GitHubToken string `mapstructure:"github_token" json:"github_token"`

	OutputDir   string `mapstructure:"output_dir" json:"output_dir"`
	JSONDir     string `mapstructure:"json_dir" json:"json_dir"`
	MarkdownDir string `mapstructure:"markdown_dir" json:"markdown_dir"`

	Pandoc string `mapstructure:"pandoc" json:"pandoc"`

	LLMBaseURL string `mapstructure:"llm_base_url" json:"llm_base_url"`
	LLMAPIKey  string `mapstructure:"llm_api_key" json:"llm_api_key"`
	LLMModel   string `mapstructure:"llm_model" json:"llm_model"`

	// Path is the config file the values were read from.
	Path string `mapstructure:"-" json:"-"`
}

// DefaultPath is ~/.star-vault/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home dir: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "stars"
	}
	return filepath.Join(home, dirName, "stars")
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault(KeyGitHubToken, "")
	v.SetDefault(KeyOutputDir, defaultOutputDir())
	v.SetDefault(KeyJSONDir, "")
	v.SetDefault(KeyMarkdownDir, "")
	v.SetDefault(KeyPandoc, DefaultPandoc)
	v.SetDefault(KeyLLMBaseURL, DefaultLLMBaseURL)
	v.SetDefault(KeyLLMAPIKey, "")
	v.SetDefault(KeyLLMModel, DefaultLLMModel)
}

// Load reads the config file at path (DefaultPath when empty), creating it
// with defaults if it does not exist. Environment variables override file
// values: STAR_VAULT_<KEY> for every key, plus GITHUB_TOKEN and LLM_* as
// shorthands. A .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	applyDefaults(v)
	bindEnv(v)
	v.SetConfigType(configType)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if !isNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := writeDefaults(path); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Path = path
	cfg.resolveDirs()
	return &cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv(KeyGitHubToken, envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv(KeyLLMBaseURL, envPrefix+"_LLM_BASE_URL", "LLM_BASE_URL")
	_ = v.BindEnv(KeyLLMAPIKey, envPrefix+"_LLM_API_KEY", "LLM_API_KEY")
	_ = v.BindEnv(KeyLLMModel, envPrefix+"_LLM_MODEL", "LLM_MODEL")
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// resolveDirs expands ~ and derives the JSON and Markdown directories from
// the output directory when they are not set.
func (c *Config) resolveDirs() {
	c.OutputDir = expandHome(c.OutputDir)
	if c.JSONDir == "" {
		c.JSONDir = filepath.Join(c.OutputDir, "json")
	}
	if c.MarkdownDir == "" {
		c.MarkdownDir = filepath.Join(c.OutputDir, "markdown")
	}
	c.JSONDir = expandHome(c.JSONDir)
	c.MarkdownDir = expandHome(c.MarkdownDir)
}

// Override applies non-empty command-line values on top of the loaded ones.
func (c *Config) Override(token, outputDir, jsonDir, markdownDir string) {
	if token != "" {
		c.GitHubToken = token
	}
	if outputDir != "" {
		c.OutputDir = outputDir
		// Derived directories follow a new output dir unless set explicitly.
		c.JSONDir, c.MarkdownDir = "", ""
	}
	if jsonDir != "" {
		c.JSONDir = jsonDir
	}
	if markdownDir != "" {
		c.MarkdownDir = markdownDir
	}
	c.resolveDirs()
}

// Update writes the given keys into the config file at path, leaving other
// keys as they are. Only the file is consulted, so environment overrides
// never get persisted.
func Update(path string, values map[string]string) error {
	v := viper.New()
	applyDefaults(v)
	v.SetConfigType(configType)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return fmt.Errorf("read config: %w", err)
	}
	for k, val := range values {
		v.Set(k, val)
	}
	return write(v, path)
}

func writeDefaults(path string) error {
	v := viper.New()
	applyDefaults(v)
	v.SetConfigType(configType)
	return write(v, path)
}

func write(v *viper.Viper, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	// The file may hold a token.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.GitHubToken = mask(c.GitHubToken)
	c.LLMAPIKey = mask(c.LLMAPIKey)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
