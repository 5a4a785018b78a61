package main

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/yukikurage/annonest-api/internal/config"
	"github.com/yukikurage/annonest-api/internal/database"
	"github.com/yukikurage/annonest-api/internal/logging"
)

const envFileFlag = "env-file"

var rootFlags = map[string]cobraflags.Flag{
	envFileFlag: &cobraflags.StringFlag{
		Name:  envFileFlag,
		Value: "",
		Usage: "Load environment variables from this file before .env",
	},
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "annonest",
		Short:        "AnnoNest annotation workflow and DataNest CRM API",
		SilenceUsage: true,
	}

	// env-file is registered on every subcommand that boots the app
	for _, sub := range []*cobra.Command{newServeCommand(), newMigrateCommand()} {
		cobraflags.RegisterMap(sub, rootFlags)
		rootCmd.AddCommand(sub)
	}
	return rootCmd
}

// bootstrap loads configuration, builds the logger and opens the database.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	if path := rootFlags[envFileFlag].GetString(); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := database.Connect(cfg, log); err != nil {
		return nil, log, err
	}
	return cfg, log, nil
}
