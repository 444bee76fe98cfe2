package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "farescout",
	Short: "farescout is the command-line interface for the FareScout service.",
	Long:  `A CLI for running flight searches against a FareScout deployment and inspecting search jobs. It talks to the same database and queue as the service, so the service must be running for searches to make progress.`,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
