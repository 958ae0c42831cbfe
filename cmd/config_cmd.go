package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Config prints the configuration penflow is actually running with,
after the config file, environment variables and defaults are merged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintln(os.Stderr, "# config file:", used)
		} else {
			fmt.Fprintln(os.Stderr, "# no config file, defaults and environment only")
		}

		shown := *GetConfig()
		if shown.Service.Token != "" {
			shown.Service.Token = "***"
		}
		out, err := yaml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
