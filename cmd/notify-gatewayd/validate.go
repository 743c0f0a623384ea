package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notifyrelay/gateway/config"
)

var validateConfigDir string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file without starting the gateway",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateConfigDir, "config-dir", "config", "directory holding <environment>.yaml")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: validateConfigDir, SkipValidation: true})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	errs := config.ValidateConfiguration(cfg)
	if len(errs) == 0 {
		fmt.Println("configuration is valid")
		return nil
	}

	config.PrintValidationErrors(errs)
	for _, e := range errs {
		if e.Level == "error" {
			return fmt.Errorf("configuration validation failed")
		}
	}
	return nil
}
