package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/issuecraft/issuecraft/internal/configfile"
	"github.com/issuecraft/issuecraft/internal/storage/sqlite"
)

var initDatabase string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an IssueCraft workspace in the current directory",
	Long:  "Creates the .issuecraft directory with a config file and an empty database.\nThe database is seeded with the built-in default user.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir := filepath.Join(cwd, configfile.DirName)
		if _, err := os.Stat(configfile.ConfigPath(dir)); err == nil {
			return fmt.Errorf("workspace already initialized at %s", dir)
		}

		cfg := configfile.DefaultConfig()
		if initDatabase != "" {
			cfg.Database = initDatabase
		}
		if identity != "" {
			cfg.Identity = identity
		}
		if err := cfg.Save(dir); err != nil {
			return err
		}

		// Opening once creates the schema and seeds the default user.
		store, err := sqlite.Open(cfg.DatabasePath(dir))
		if err != nil {
			return err
		}
		if err := store.Close(); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s initialized workspace at %s\n", green("OK"), dir)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initDatabase, "database", "", "Database file name inside .issuecraft (default issuecraft.db)")
	rootCmd.AddCommand(initCmd)
}
