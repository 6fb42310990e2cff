package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/app"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/auth"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/database"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	cli "github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API and the publish scheduler",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := app.Initialize(cmd.String("config"))
			if err != nil {
				return err
			}
			return app.StartServer(application)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema and default policies",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// Bootstrap 中已完成表结构迁移和默认策略写入
			if _, err := app.Bootstrap(cmd.String("config")); err != nil {
				return err
			}
			defer app.Shutdown()
			logger.Infof("Migration finished")
			return nil
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Publish due scheduled documents once and exit",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.Bootstrap(cmd.String("config"))
			if err != nil {
				return err
			}
			defer app.Shutdown()

			repos := app.InitializeRepositories(database.DB)
			_, approvals, publisher, err := app.InitializeWorkflow(cfg, repos)
			if err != nil {
				return err
			}
			defer publisher.Close()

			result, err := app.InitializeScheduler(cfg, repos, approvals).Sweep(ctx)
			if err != nil {
				return err
			}
			if result.Skipped {
				logger.Infof("Another node holds the sweep lock, skipped")
				return nil
			}
			logger.Infof("Sweep finished: found=%d published=%d failed=%d", result.Found, result.Published, result.Failed)
			if result.Failed > 0 {
				return fmt.Errorf("%d scheduled documents failed to publish", result.Failed)
			}
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Sign an identity token for local testing",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "employee-id", Usage: "Employee ID", Required: true},
			&cli.StringFlag{Name: "email", Usage: "Employee email", Required: true},
			&cli.StringFlag{Name: "role", Usage: "Role claim", Value: "employee"},
			&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 12 * time.Hour},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(app.ResolveConfigPath(cmd.String("config")))
			if err != nil {
				return err
			}
			token, err := auth.NewTokenService(cfg.Security).GenerateToken(model.Identity{
				EmployeeID: uint(cmd.Uint("employee-id")),
				Email:      cmd.String("email"),
				Role:       cmd.String("role"),
			}, cmd.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
