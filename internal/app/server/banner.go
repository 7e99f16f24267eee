package server

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"tunnelgate/internal/version"
)

const (
	bannerWidth = 60
)

var (
	bannerCyan  = color.New(color.FgCyan).SprintFunc()
	bannerBold  = color.New(color.Bold).SprintFunc()
	bannerGreen = color.New(color.FgGreen).SprintFunc()
	bannerFaint = color.New(color.Faint).SprintFunc()
)

// IsTerminal 标准输出是否为终端
func IsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DisplayStartupBanner 显示启动信息横幅
func (s *Server) DisplayStartupBanner(w io.Writer) {
	displayLogo(w)
	displayServerInfo(w, s)
	displayFooter(w)
}

func displayLogo(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s  %s\n", bannerCyan("tunnelgate"), bannerFaint("HTTP CONNECT tunneling proxy"))
	fmt.Fprintf(w, "  %s\n", bannerFaint("Version "+version.GetShortVersion()))
	fmt.Fprintln(w)
}

func displayServerInfo(w io.Writer, s *Server) {
	fmt.Fprintln(w, bannerBold("  Server Information"))
	fmt.Fprintln(w, bannerFaint("  "+strings.Repeat("─", bannerWidth)))

	cfg := s.config
	healthInfo := bannerFaint("✗ Disabled")
	if cfg.Health.Enabled {
		healthInfo = bannerGreen("✓ " + cfg.Health.Listen)
	}
	cacheInfo := bannerFaint("✗ Disabled")
	if cfg.Resolver.CacheEnabled {
		cacheInfo = bannerGreen(fmt.Sprintf("✓ %d entries, ttl %s", cfg.Resolver.CacheSize, cfg.Resolver.CacheTTL))
	}

	infoRows := []struct {
		label string
		value string
	}{
		{"Listen", fmt.Sprintf("%s:%d", cfg.Proxy.Host, cfg.Proxy.Port)},
		{"Config File", formatConfigPath(s.configPath)},
		{"Start Time", time.Now().Format("2006-01-02 15:04:05")},
		{"Relay Mode", cfg.Proxy.RelayMode},
		{"Buffer Size", fmt.Sprintf("%d bytes", cfg.Proxy.BufferSize)},
		{"Max Conns", formatLimit(cfg.Proxy.MaxConnections)},
		{"DNS Cache", cacheInfo},
		{"Health", healthInfo},
		{"Log File", formatLogFile(cfg.Log.File)},
	}

	for _, row := range infoRows {
		fmt.Fprintf(w, "  %-18s %s\n", bannerBold(row.label+":"), row.value)
	}
	fmt.Fprintln(w)
}

func displayFooter(w io.Writer) {
	fmt.Fprintln(w, bannerFaint("  "+strings.Repeat("━", bannerWidth)))
	fmt.Fprintln(w)
}

func formatConfigPath(path string) string {
	if path == "" {
		return "(none)"
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func formatLimit(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}

func formatLogFile(path string) string {
	if path == "" {
		return "stderr"
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
