package main

import (
	"fmt"
	"os"

	"github.com/OdyseeTeam/fast-ledger/config"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(app.ErrWriter, "%+v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	var prof interface{ Stop() }

	app := cli.NewApp()
	app.Name = "fast-ledger"
	app.Usage = "encode, hash, execute and serve ledger transactions"
	app.ErrWriter = os.Stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "YAML config file"},
		cli.StringFlag{Name: "log-level", Usage: "overrides LogLevel from the config"},
		cli.StringFlag{Name: "profile", Usage: "write a profile: cpu or mem"},
	}
	app.Before = func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		lvl, err := cfg.Level()
		if err != nil {
			return err
		}
		logrus.SetLevel(lvl)

		switch ctx.GlobalString("profile") {
		case "":
		case "cpu":
			prof = profile.Start(profile.CPUProfile, profile.NoShutdownHook)
		case "mem":
			prof = profile.Start(profile.MemProfile, profile.NoShutdownHook)
		default:
			return cli.NewExitError("profile must be cpu or mem", 1)
		}
		return nil
	}
	app.After = func(*cli.Context) error {
		if prof != nil {
			prof.Stop()
		}
		return nil
	}
	app.Commands = []cli.Command{
		encodeCommand(),
		decodeCommand(),
		hashCommand(),
		executeCommand(),
		rootCommand(),
		appendCommand(),
		loadCommand(),
		serveCommand(),
	}
	return app
}

// loadConfig reads --config when given, then applies flag overrides.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}

	if lvl := ctx.GlobalString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if ctx.IsSet("data-dir") {
		cfg.DataDir = ctx.String("data-dir")
	}
	if ctx.IsSet("store") {
		cfg.StorePath = ctx.String("store")
	}
	if ctx.IsSet("listen") {
		cfg.Listen = ctx.String("listen")
	}
	if ctx.IsSet("workers") {
		cfg.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("no-execute") {
		cfg.Execute = !ctx.Bool("no-execute")
	}
	return cfg, cfg.Validate()
}
