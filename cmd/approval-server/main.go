package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/app"
	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "approval-server",
		EnableShellCompletion: true,
		Usage:                 "HRHub electronic approval service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   app.DefaultConfigPath,
				Sources: cli.EnvVars("HRHUB_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			sweepCommand(),
			tokenCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
