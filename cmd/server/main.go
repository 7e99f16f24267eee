package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tunnelgate/internal/app/server"
	"tunnelgate/internal/config/loader"
	"tunnelgate/internal/config/source"
	corelog "tunnelgate/internal/core/log"
	"tunnelgate/internal/version"
)

var (
	configFile string
	host       string
	port       int
	logLevel   string
	relayMode  string
)

var rootCmd = &cobra.Command{
	Use:   "tunnelgate",
	Short: "tunnelgate - HTTP CONNECT tunneling proxy",
	Long: `tunnelgate accepts HTTP CONNECT requests, opens a TCP connection to the
requested host:port and relays bytes in both directions until either side closes.

Configuration is read from defaults, a YAML file, .env files,
TUNNELGATE_* environment variables and flags, in increasing priority.`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "tunnelgate "+version.GetVersion())
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file path")
	flags.StringVar(&host, "host", source.DefaultHost, "Listen host")
	flags.IntVarP(&port, "port", "p", source.DefaultPort, "Listen port")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug/info/warn/error")
	flags.StringVar(&relayMode, "relay-mode", "independent", "Relay mode: independent/linked")

	rootCmd.AddCommand(versionCmd)
}

// flagValues 只收集命令行上显式给出的参数
func flagValues(cmd *cobra.Command) source.FlagValues {
	var v source.FlagValues
	flags := cmd.Flags()
	if flags.Changed("host") {
		v.Host = &host
	}
	if flags.Changed("port") {
		v.Port = &port
	}
	if flags.Changed("log-level") {
		v.LogLevel = &logLevel
	}
	if flags.Changed("relay-mode") {
		v.RelayMode = &relayMode
	}
	return v
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loader.Load(configFile, flagValues(cmd))
	if err != nil {
		return err
	}

	if err := server.SetupLogging(cfg.Log); err != nil {
		return err
	}

	srv := server.New(cfg, source.FindConfigFile(configFile))
	if server.IsTerminal() {
		srv.DisplayStartupBanner(cmd.OutOrStdout())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	corelog.Info("tunnelgate exited gracefully")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
