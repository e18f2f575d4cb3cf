// Command fakednsproxy runs a programmable DNS proxy: queries are answered
// according to a YAML policy file, either by forwarding to a real
// resolver, by returning NXDOMAIN, or by synthesizing records locally.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/constcast/fakednsproxy"
	"github.com/constcast/fakednsproxy/dispatch"
	"github.com/constcast/fakednsproxy/internal/config"
	"github.com/constcast/fakednsproxy/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "fakednsproxy <config_file>",
	Short: "A programmable DNS proxy",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("Usage: %s <config_file>", os.Args[0])
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSON: jsonOut})
}

func run(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("main")

	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	logger.Debug().Msg(cfg.Dump())

	upstream := dispatch.NewClient(cfg.DNSServer.IP, cfg.DNSServer.Port)
	dispatcher := dispatch.NewDispatcher(cfg.Table, upstream)
	srv := fakednsproxy.New(cfg.Listen.IP, cfg.Listen.Port, dispatcher)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info().Str("listen", cfg.Listen.String()).Str("upstream", cfg.DNSServer.String()).Msg("starting")

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("serving dns: %w", err)
	}

	logger.Info().Msg("shut down cleanly")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
