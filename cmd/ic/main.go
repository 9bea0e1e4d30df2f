// Command ic is the IssueCraft CLI: an issue tracker driven by the IQL
// query language.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/issuecraft/issuecraft"
	"github.com/issuecraft/issuecraft/internal/config"
	"github.com/issuecraft/issuecraft/internal/configfile"
	"github.com/issuecraft/issuecraft/internal/engine"
	"github.com/issuecraft/issuecraft/internal/storage/sqlite"
)

var (
	dbPath     string
	identity   string
	jsonOutput bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:           "ic",
	Short:         "IssueCraft: an IQL-driven issue tracker",
	Long:          "IssueCraft tracks users, projects, issues, and comments,\nall driven through the IQL query language.\n\nRun 'ic init' once per workspace, then 'ic query <statement>'.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: $IC_DB or the workspace config)")
	rootCmd.PersistentFlags().StringVar(&identity, "identity", "", "Acting username (default: $IC_IDENTITY or the workspace config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

// findWorkspace locates the enclosing .issuecraft directory and loads
// its config. Both returns are empty when no workspace exists.
func findWorkspace() (string, *configfile.Config, error) {
	dir := issuecraft.FindWorkspaceDir()
	if dir == "" {
		return "", nil, nil
	}
	cfg, err := configfile.Load(dir)
	if err != nil {
		return "", nil, err
	}
	return dir, cfg, nil
}

// openEngine resolves the database path and identity and opens the
// store. Flags beat IC_* environment variables, which beat the
// workspace config file.
func openEngine() (*engine.Engine, *sqlite.Store, error) {
	wsDir, cfg, err := findWorkspace()
	if err != nil {
		return nil, nil, err
	}

	path := dbPath
	if path == "" {
		path = config.Database()
	}
	if path == "" && cfg != nil {
		path = cfg.DatabasePath(wsDir)
	}
	if path == "" {
		return nil, nil, fmt.Errorf("no database configured: run 'ic init' or pass --db")
	}

	who := identity
	if who == "" {
		who = config.Identity()
	}
	if who == "" && cfg != nil {
		who = cfg.Identity
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{engine.WithLogger(newLogger(wsDir, cfg))}
	if who != "" {
		opts = append(opts, engine.WithIdentity(engine.StaticIdentity(who)))
	}
	return engine.New(store, opts...), store, nil
}

// newLogger builds the debug logger. It writes to a size-capped rolling
// file when one is configured, and is silent otherwise.
func newLogger(wsDir string, cfg *configfile.Config) *log.Logger {
	path := config.LogFile()
	if path == "" && cfg != nil {
		path = cfg.LogPath(wsDir)
	}
	if path == "" && config.Debug() && wsDir != "" {
		path = filepath.Join(wsDir, "debug.log")
	}
	if path == "" {
		return log.New(io.Discard)
	}
	logger := log.New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	})
	logger.SetLevel(log.DebugLevel)
	return logger
}
