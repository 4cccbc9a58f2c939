package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/cloudoki/donder-release/internal/app"
	"github.com/cloudoki/donder-release/internal/config"
	errs "github.com/cloudoki/donder-release/internal/errors"
	"github.com/cloudoki/donder-release/internal/github"
	"github.com/cloudoki/donder-release/internal/gitlog"
	"github.com/cloudoki/donder-release/internal/logger"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errs.ExitCodeOf(err))
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "donder-release",
		Usage: "Quickly create releases on GitHub from the command line or CI using conventional commits",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "init",
				Usage: "initialize a configuration file and exit",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file path",
				Value:   "donder-release.yaml",
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "start ref of the commit range (defaults to the latest release tag)",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "end ref of the commit range",
				Value: "HEAD",
			},
			&cli.StringFlag{
				Name:  "repo",
				Usage: "repository in owner/name form (inferred from the origin remote if absent)",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "host API token",
				Sources: cli.EnvVars("GH_TOKEN"),
			},
			&cli.StringFlag{
				Name:  "tag-prefix",
				Usage: "prefix of release tags",
			},
			&cli.StringFlag{
				Name:  "pre-id",
				Usage: "prerelease channel id (e.g. alpha, beta, rc)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "preview the pending release without publishing it",
			},
			&cli.BoolFlag{
				Name:  "draft",
				Usage: "publish the release as a draft",
			},
			&cli.BoolFlag{
				Name:  "prerelease",
				Usage: "mark the release as a prerelease",
			},
			&cli.BoolFlag{
				Name:  "overwrite",
				Usage: "update the release if one already exists for the tag",
			},
			&cli.StringSliceFlag{
				Name:  "package",
				Usage: "release only the named monorepo packages (repeatable)",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, c *cli.Command) error {
	if c.Bool("init") {
		return config.Init(c.String("config"))
	}

	cfg, err := config.Load(c.String("config"), config.Options{
		Token:      c.String("token"),
		Repo:       c.String("repo"),
		FromRef:    c.String("from"),
		ToRef:      c.String("to"),
		TagPrefix:  c.String("tag-prefix"),
		PreID:      c.String("pre-id"),
		DryRun:     c.Bool("dry-run"),
		Draft:      c.Bool("draft"),
		Prerelease: c.Bool("prerelease"),
		Overwrite:  c.Bool("overwrite"),
		Packages:   c.StringSlice("package"),
	})
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log)
	log.Info("Starting donder-release")

	src := gitlog.NewReader(".")

	// The repository slug is only needed to talk to the API, so a dry run
	// works in a clone without an origin remote.
	var host app.Host
	if !cfg.DryRun {
		if cfg.RepoOwner == "" {
			owner, name, err := src.RepoSlug()
			if err != nil {
				return err
			}
			cfg.RepoOwner, cfg.RepoName = owner, name
		}
		host = github.NewClient(cfg.Token, cfg.RepoOwner, cfg.RepoName)
	}

	state, _, err := app.New(cfg, src, host, log).Run(ctx)
	if err != nil {
		return err
	}
	if state == app.StateNoRelease {
		log.Info("Nothing to release")
		return nil
	}
	log.Info("Completed successfully")
	return nil
}
