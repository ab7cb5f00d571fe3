package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"skillscan/config"
	"skillscan/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	log.InitLogger()
	defer log.GetLogger().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "skillscan",
		Usage:   "Extract skill descriptions from gameplay videos",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output to the console"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.SetVerbose(cmd.Bool("verbose"))
			if err := config.LoadConfig(); err != nil {
				return ctx, cli.Exit(fmt.Sprintf("加载配置失败 load config: %v", err), 2)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			extractCommand(),
			serveCommand(),
			doctorCommand(),
		},
	}
}
