package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"

	"github.com/cvsouth/enseal/keystore"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var logLevel slog.LevelVar

var rootCmd = &cobra.Command{
	Use:   "enseal",
	Short: "Share .env files and secrets between machines",
	Long: `enseal moves environment files and secrets between machines without
a shared server you have to run: over a short rendezvous code, directly
to a known identity via a relay, or as an encrypted file drop.`,
	Version: Version,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stderr, &devlog.Options{
		Level: &logLevel,
	})))

	rootCmd.PersistentFlags().String("base-dir", "", "Key store base directory (default: "+keystore.DefaultBase()+")")
	rootCmd.PersistentFlags().String("config", "", "Configuration file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("relay-url", "", "Rendezvous relay server URL")

	cobra.OnInitialize(func() {
		if v, _ := rootCmd.PersistentFlags().GetBool("verbose"); v {
			logLevel.Set(slog.LevelDebug)
		}
		if cfg, _ := rootCmd.PersistentFlags().GetString("config"); cfg != "" {
			viper.SetConfigFile(cfg)
			if err := viper.ReadInConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to read config file %s: %v\n", cfg, err)
			}
		}
	})

	viper.SetEnvPrefix("enseal")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("base-dir", rootCmd.PersistentFlags().Lookup("base-dir"))
	_ = viper.BindPFlag("relay-url", rootCmd.PersistentFlags().Lookup("relay-url"))
}

// store builds the keystore.Store rooted at the configured base
// directory, honouring --base-dir, then $ENSEAL_BASE_DIR, then the
// platform default.
func store() *keystore.Store {
	base := viper.GetString("base-dir")
	return keystore.New(base)
}

// defaultRelayURL is used when neither --relay-url nor $ENSEAL_RELAY_URL
// is set; it assumes a relay running on the default port on localhost,
// which is the common case for development and self-hosting.
const defaultRelayURL = "ws://localhost:8787"

func relayURL() string {
	if u := viper.GetString("relay-url"); u != "" {
		return u
	}
	return defaultRelayURL
}
