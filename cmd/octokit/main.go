package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fivetwenty-io/octokit/cmd/octokit/commands"
	"github.com/fivetwenty-io/octokit/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "octokit",
	Short: "GitHub REST API CLI",
	Long: `A command-line interface for the GitHub REST API.

Every operation of the selected route set is callable by resource group and
operation name, e.g. "octokit call issues list_for_repo owner=octocat repo=hello-world".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.octokit/config.yml)")
	rootCmd.PersistentFlags().String("base-url", "", "REST API base URL (default https://api.github.com)")
	rootCmd.PersistentFlags().String("routes", "", "route set, e.g. api.github.com or ghe-2.18")
	rootCmd.PersistentFlags().String("auth", "", "authentication scheme (basic, token, app, installation)")
	rootCmd.PersistentFlags().StringP("token", "t", "", "personal access or OAuth token")
	rootCmd.PersistentFlags().String("app-id", "", "GitHub App id")
	rootCmd.PersistentFlags().String("private-key", "", "path to the GitHub App private key")
	rootCmd.PersistentFlags().StringP("output", "o", "json", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("skip-ssl-validation", false, "skip SSL certificate validation")

	// Bind flags to viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("routes", rootCmd.PersistentFlags().Lookup("routes"))
	_ = viper.BindPFlag("auth", rootCmd.PersistentFlags().Lookup("auth"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("app_id", rootCmd.PersistentFlags().Lookup("app-id"))
	_ = viper.BindPFlag("private_key_path", rootCmd.PersistentFlags().Lookup("private-key"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("skip_ssl_validation", rootCmd.PersistentFlags().Lookup("skip-ssl-validation"))

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewOperationsCommand())
	rootCmd.AddCommand(commands.NewCallCommand())
	rootCmd.AddCommand(commands.NewWebhooksCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".octokit")

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		}

		// Search config in ~/.octokit/config.yml
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match, e.g. OCTOKIT_TOKEN
	viper.SetEnvPrefix("OCTOKIT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
