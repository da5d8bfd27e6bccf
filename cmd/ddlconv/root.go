package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/olaria/ddlconv/pkg/logger"
)

var (
	cfgFile   string
	outputDir string
	verbose   bool

	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ddlconv",
	Short: "Convert DB2 mainframe DDL into dictionary and pipeline config artifacts",
	Long: `ddlconv turns DB2-style CREATE TABLE statements into two artifacts:
a semicolon-separated column dictionary for review, and the JSON
configuration record consumed by the ingestion pipelines.

Offline counterpart of the ddlconv-server HTTP service.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if dir := viper.GetString("output.dir"); dir != "" {
			outputDir = dir
		}
		log = logger.New(logger.Options{Verbose: verbose})
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ddlconv.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "output", "directory for generated artifacts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) logging")

	_ = viper.BindPFlag("output.dir", rootCmd.PersistentFlags().Lookup("output-dir"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("ddlconv")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DDLCONV")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
