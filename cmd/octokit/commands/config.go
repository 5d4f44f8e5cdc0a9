package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/octokit/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration.
type Config struct {
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	BaseURL           string `json:"base_url,omitempty"            yaml:"base_url,omitempty"`
	Routes            string `json:"routes,omitempty"              yaml:"routes,omitempty"`
	SkipSSLValidation bool   `json:"skip_ssl_validation,omitempty" yaml:"skip_ssl_validation,omitempty"`

	Cache    string `json:"cache,omitempty"     yaml:"cache,omitempty"`
	CacheURL string `json:"cache_url,omitempty" yaml:"cache_url,omitempty"`

	Auth           string `json:"auth,omitempty"             yaml:"auth,omitempty"`
	Username       string `json:"username,omitempty"         yaml:"username,omitempty"`
	Token          string `json:"token,omitempty"            yaml:"token,omitempty"`
	AppID          string `json:"app_id,omitempty"           yaml:"app_id,omitempty"`
	PrivateKeyPath string `json:"private_key_path,omitempty" yaml:"private_key_path,omitempty"`

	InstallationToken          string     `json:"installation_token,omitempty"            yaml:"installation_token,omitempty"`
	InstallationTokenExpiresAt *time.Time `json:"installation_token_expires_at,omitempty" yaml:"installation_token_expires_at,omitempty"`

	WebhookSecret string   `json:"webhook_secret,omitempty" yaml:"webhook_secret,omitempty"`
	WebhookEvents []string `json:"webhook_events,omitempty" yaml:"webhook_events,omitempty"`
}

// configSetters maps settable keys to their field.
var configSetters = map[string]func(*Config, string){
	"output":              func(c *Config, v string) { c.Output = v },
	"base_url":            func(c *Config, v string) { c.BaseURL = v },
	"routes":              func(c *Config, v string) { c.Routes = v },
	"skip_ssl_validation": func(c *Config, v string) { c.SkipSSLValidation = parseBoolValue(v) },
	"cache":               func(c *Config, v string) { c.Cache = v },
	"cache_url":           func(c *Config, v string) { c.CacheURL = v },
	"auth":                func(c *Config, v string) { c.Auth = v },
	"username":            func(c *Config, v string) { c.Username = v },
	"token":               func(c *Config, v string) { c.Token = v },
	"app_id":              func(c *Config, v string) { c.AppID = v },
	"private_key_path":    func(c *Config, v string) { c.PrivateKeyPath = v },
	"webhook_secret":      func(c *Config, v string) { c.WebhookSecret = v },
	"webhook_events":      func(c *Config, v string) { c.WebhookEvents = splitList(v) },
	"installation_token": func(c *Config, v string) {
		c.InstallationToken = v
		c.InstallationTokenExpiresAt = nil
	},
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage octokit CLI configuration including credentials and webhook settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			return renderConfig(cmd.OutOrStdout(), maskSecrets(config), viper.GetString("output"))
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + strings.Join(configKeys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := setConfigValue(config, args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := setConfigValue(config, args[0], "")
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])

			return nil
		},
	}
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for key := range configSetters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func setConfigValue(config *Config, key, value string) error {
	setter, ok := configSetters[key]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrConfigKeyUnknown, key)
	}

	setter(config, value)

	return nil
}

func loadConfig() *Config {
	config := &Config{
		Output:            viper.GetString("output"),
		BaseURL:           viper.GetString("base_url"),
		Routes:            viper.GetString("routes"),
		SkipSSLValidation: viper.GetBool("skip_ssl_validation"),
		Cache:             viper.GetString("cache"),
		CacheURL:          viper.GetString("cache_url"),
		Auth:              viper.GetString("auth"),
		Username:          viper.GetString("username"),
		Token:             viper.GetString("token"),
		AppID:             viper.GetString("app_id"),
		PrivateKeyPath:    viper.GetString("private_key_path"),
		InstallationToken: viper.GetString("installation_token"),
		WebhookSecret:     viper.GetString("webhook_secret"),
		WebhookEvents:     viper.GetStringSlice("webhook_events"),
	}

	if expiresAt := viper.GetTime("installation_token_expires_at"); !expiresAt.IsZero() {
		config.InstallationTokenExpiresAt = &expiresAt
	}

	return config
}

func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".octokit")

	err = os.MkdirAll(configDir, constants.ConfigDirPerm)
	if err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.yml"), nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func maskSecrets(config *Config) *Config {
	masked := *config

	for _, secret := range []*string{&masked.Token, &masked.InstallationToken, &masked.WebhookSecret} {
		if *secret != "" {
			*secret = constants.MaskedSecret
		}
	}

	return &masked
}

func renderConfig(w io.Writer, config *Config, output string) error {
	switch output {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(config)
	case constants.FormatYAML:
		return yaml.NewEncoder(w).Encode(config)
	default:
		return displayConfigTable(w, config)
	}
}

func displayConfigTable(w io.Writer, config *Config) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	rows := [][]string{
		{"Output", formatConfigValue(config.Output)},
		{"Base URL", formatConfigValue(config.BaseURL)},
		{"Routes", formatConfigValue(config.Routes)},
		{"Skip SSL Validation", strconv.FormatBool(config.SkipSSLValidation)},
		{"Cache", formatConfigValue(config.Cache)},
		{"Cache URL", formatConfigValue(config.CacheURL)},
		{"Auth", formatConfigValue(config.Auth)},
		{"Username", formatConfigValue(config.Username)},
		{"Token", formatConfigValue(config.Token)},
		{"App ID", formatConfigValue(config.AppID)},
		{"Private Key", formatConfigValue(config.PrivateKeyPath)},
		{"Installation Token", formatConfigValue(config.InstallationToken)},
		{"Installation Token Expires", expiryString(config.InstallationTokenExpiresAt)},
		{"Webhook Secret", formatConfigValue(config.WebhookSecret)},
		{"Webhook Events", formatConfigValue(strings.Join(config.WebhookEvents, ","))},
	}

	for _, row := range rows {
		err := table.Append(row)
		if err != nil {
			return fmt.Errorf("failed to append row to table: %w", err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func formatConfigValue(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}

func parseBoolValue(value string) bool {
	return value == constants.BooleanTrue || value == "1" || value == "yes"
}

func splitList(value string) []string {
	var out []string

	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
