// Package cmd implements the jweave command line.
package cmd

import (
	"os"
	"strings"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/daimatz/jweave/pkg/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// Verbose boolean flag for verbose logging
	Verbose bool
	// Color boolean flag for colorized output
	Color bool
)

var rootCmd = &cobra.Command{
	Use:   "jweave",
	Short: "Route JVM methods through an invocation handler by rewriting class files",
}

// Execute runs the root command. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	log.SetHandler(clihander.Default)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "manifest file (default is the nearest "+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&Color, "color", false, "colorize output")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
	viper.BindEnv("color", "CLICOLOR")

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// initConfig reads ENV variables and applies the global flags.
func initConfig() {
	viper.SetEnvPrefix("jweave")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}
	color.NoColor = !viper.GetBool("color")
}

// loadConfig reads the manifest and applies flag and environment overrides.
func loadConfig() (*config.Config, error) {
	var (
		c   *config.Config
		err error
	)
	if cfgFile != "" {
		c, err = config.Load(cfgFile)
	} else {
		c, err = config.Find(".")
	}
	if err != nil {
		return nil, err
	}
	if c.Path != "" {
		log.WithField("path", c.Path).Debug("Using manifest")
	}

	if s := viper.GetString("weave.strategy"); s != "" {
		c.Weave.Strategy = s
	}
	if n := viper.GetInt("weave.workers"); n > 0 {
		c.Weave.Workers = n
	}
	c.Select.Classes = append(c.Select.Classes, viper.GetStringSlice("weave.class")...)
	c.Select.ExcludeMethods = append(c.Select.ExcludeMethods, viper.GetStringSlice("weave.exclude")...)
	return c, nil
}
