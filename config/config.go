package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Environment variable names bound into viper.
const (
	EnvAPIToken        = "PRODUCTIVE_API_TOKEN"
	EnvOrgID           = "PRODUCTIVE_ORG_ID"
	EnvPersonID        = "PRODUCTIVE_PERSON_ID"
	EnvBaseURL         = "PRODUCTIVE_BASE_URL"
	EnvScanDirs        = "SCAN_DIRS"
	EnvGitAuthor       = "GIT_AUTHOR_NAME"
	EnvSessionsDir     = "CODEX_SESSIONS_DIR"
	EnvChatGPTKey      = "CHATGPT_API_KEY"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvChatGPTModel    = "CHATGPT_MODEL"
	defaultGPTModel    = "gpt-4o-mini"
	defaultSessionsDir = "~/.codex/sessions"
)

type Config struct {
	APIToken string `mapstructure:"api_token" validate:"required"`
	OrgID    string `mapstructure:"org_id" validate:"required"`
	PersonID string `mapstructure:"person_id" validate:"required"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`

	ScanDirs    []string `mapstructure:"-" validate:"required,min=1"`
	GitAuthor   string   `mapstructure:"git_author" validate:"required"`
	SessionsDir string   `mapstructure:"sessions_dir" validate:"required"`

	ChatGPTKey   string `mapstructure:"chatgpt_key" validate:"required"`
	ChatGPTModel string `mapstructure:"chatgpt_model"`
}

// LoadAndValidate reads configuration from the environment and validates it.
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	bindings := map[string][]string{
		"api_token":     {EnvAPIToken},
		"org_id":        {EnvOrgID},
		"person_id":     {EnvPersonID},
		"base_url":      {EnvBaseURL},
		"git_author":    {EnvGitAuthor},
		"sessions_dir":  {EnvSessionsDir},
		"chatgpt_key":   {EnvChatGPTKey, EnvOpenAIKey},
		"chatgpt_model": {EnvChatGPTModel},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.SetDefault("chatgpt_model", defaultGPTModel)
	v.SetDefault("sessions_dir", defaultSessionsDir)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.ScanDirs = SplitScanDirs(os.Getenv(EnvScanDirs))
	cfg.SessionsDir = expandHome(cfg.SessionsDir)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &cfg, nil
}

// SplitScanDirs parses the comma-separated SCAN_DIRS value, dropping empty
// segments and expanding a leading "~".
func SplitScanDirs(raw string) []string {
	var dirs []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dirs = append(dirs, expandHome(part))
	}
	return dirs
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return home + strings.TrimPrefix(path, "~")
		}
	}
	return path
}
