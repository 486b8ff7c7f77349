// Command enseal-relay runs the rendezvous relay server: a small
// WebSocket mailbox service that pairs two peers on a channel id and
// forwards binary frames between them.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"

	"github.com/cvsouth/enseal/relay"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var logLevel slog.LevelVar

var rootCmd = &cobra.Command{
	Use:     "enseal-relay",
	Short:   "Run the enseal rendezvous relay server",
	Version: Version,
	RunE:    run,
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stdout, &devlog.Options{Level: &logLevel})))

	rootCmd.Flags().String("addr", ":8787", "Listen address")
	rootCmd.Flags().Int("max-channels", 1024, "Maximum simultaneous mailboxes")
	rootCmd.Flags().Int("rate-limit", 20, "Maximum connections per IP per minute")
	rootCmd.Flags().Duration("ttl", 10*time.Minute, "Mailbox lifetime before eviction")
	rootCmd.Flags().Int("max-frame-bytes", 16<<20, "Maximum WebSocket frame size")
	rootCmd.Flags().Bool("verbose", false, "Enable debug logging")

	_ = viper.BindPFlags(rootCmd.Flags())
	viper.SetEnvPrefix("enseal_relay")
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, args []string) error {
	if viper.GetBool("verbose") {
		logLevel.Set(slog.LevelDebug)
	}

	relay.Version = Version
	cfg := relay.Config{
		MaxChannels:   viper.GetInt("max-channels"),
		RateLimit:     viper.GetInt("rate-limit"),
		RateWindow:    time.Minute,
		TTL:           viper.GetDuration("ttl"),
		MaxFrameBytes: viper.GetInt("max-frame-bytes"),
	}

	srv := relay.NewServer(viper.GetString("addr"), cfg, slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
