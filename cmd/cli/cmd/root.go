package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "hirectl",
	Short: "hirectl is a command line tool for the hirelane job marketplace",
	Long: `hirectl is the command-line interface for the hirelane job marketplace API.

Workers browse jobs and track their applications; employers review applicants
and move them through the hiring workflow.

Common workflows:

  Find plumbing work in Pune:
    hirectl jobs search --category plumbing --city pune

  Apply to a job:
    hirectl apply <job-id> --cover-letter "Eight years of site experience"

  Review applicants as an employer:
    hirectl applications list --job <job-id>
    hirectl status set <application-id> shortlisted --note "Strong references"
    hirectl interview <application-id> --at 2026-11-02T10:00:00+05:30 --location "Site office"

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    HIRELANE_URL      API endpoint (default: http://localhost:8080)
    HIRELANE_TOKEN    API token returned by /auth/verify`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".hirectl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".hirectl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "HIRELANE_VARNAME"
	viper.SetEnvPrefix("HIRELANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newClient builds a client from the resolved url and token.
func newClient() *Client {
	return NewClient(viper.GetString("url"), viper.GetString("token"))
}

// requireToken fails commands that need a signed-in caller.
func requireToken() error {
	if viper.GetString("token") == "" {
		return fmt.Errorf("API token not found. Please set it using the --token flag or the HIRELANE_TOKEN environment variable")
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hirectl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "hirelane API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format: table, json or yaml")
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}
