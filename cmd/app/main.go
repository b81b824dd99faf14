package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notely/internal"
	"github.com/starford/notely/internal/models"
	pkgconfig "github.com/starford/notely/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func userFromFlags(cmd *cli.Command) models.User {
	return models.User{
		ID:    cmd.String("user"),
		Email: cmd.String("email"),
		Name:  cmd.String("name"),
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}
	if cmd.String("user") != "" {
		opts = append(opts, internal.WithUser(userFromFlags(cmd)))
	}

	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func issueToken(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	token, err := internal.IssueToken(cfg, userFromFlags(cmd), cmd.Duration("ttl"))
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}

func userFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "user",
			Aliases:  []string{"u"},
			Usage:    "User id (JWT subject)",
			Required: required,
		},
		&cli.StringFlag{
			Name:  "email",
			Usage: "User email",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "User display name",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "notely",
		Usage:  "Personal notes service with tags, favorites, search and AI summaries",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio, acting as one user",
				Flags:  userFlags(false),
				Action: serveMCP,
			},
			{
				Name:  "token",
				Usage: "Mint a JWT for development",
				Flags: append(userFlags(true), &cli.DurationFlag{
					Name:  "ttl",
					Usage: "Token lifetime",
					Value: 24 * time.Hour,
				}),
				Action: issueToken,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
