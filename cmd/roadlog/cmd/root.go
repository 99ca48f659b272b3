package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "roadlog",
	Short: "Roadlog serves a collaboratively edited road dataset",
	Long: `Roadlog keeps a road network dataset as a baseline snapshot plus an
append-only log of user edits. Reads merge the log over the baseline on the
fly; an admin checkpoint folds everything back into a fresh baseline.

The dataset lives on a local directory or a GCS bucket.
`,
}

var config *Config

// used to patch over calls to os.Exit() during test
var logFatalln = log.Fatalln
var osExit = os.Exit

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		osExit(1)
	}
}

func wrapFatalln(msg string, err error) {
	if err == nil {
		logFatalln(msg)
		return
	}
	logFatalln(msg + ": " + err.Error())
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetDefault("storage", "local")
	viper.SetDefault("path", "./roadlog-data")
	viper.SetDefault("port", 8080)
	viper.SetDefault("loglevel", "info")

	if cfg := os.Getenv("ROADLOG_CONFIG"); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.roadlog")
		viper.AddConfigPath("/etc/roadlog")
		viper.SetConfigName("roadlog")
	}

	viper.SetEnvPrefix("roadlog")
	viper.AutomaticEnv() // read in environment variables that match
	if err := viper.ReadInConfig(); err == nil {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}
	var err error
	config, err = newConfig()
	if err != nil {
		logFatalln(err)
	}
}
