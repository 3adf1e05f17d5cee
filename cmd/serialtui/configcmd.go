package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"serialtui/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, path, err := config.Load(flagConfig)
		if err == nil {
			fmt.Println(path)
			return nil
		}
		// No loadable config: show where one would be looked for.
		for _, candidate := range config.Candidates(flagConfig) {
			fmt.Println(candidate)
		}
		return err
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
