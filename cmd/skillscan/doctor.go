package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	cli "github.com/urfave/cli/v3"

	"skillscan/config"
	"skillscan/internal/appdirs"
	"skillscan/internal/deps"
	"skillscan/log"
)

func doctorCommand() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Report runtime paths and external tool availability",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer
			printDiagnose(w)

			states := deps.ResolveDependencyInventory(config.Conf.Interval.FFmpegPath, config.Conf.Hint.TesseractPath, config.Conf.Hint.Engine)
			fmt.Fprint(w, deps.FormatDependencyReport(states))
			if err := deps.Usable(states); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

func printDiagnose(w io.Writer) {
	fmt.Fprintf(w, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "version: %s\n", version)
	fmt.Fprintf(w, "commit: %s\n", commit)

	paths, err := appdirs.Resolve()
	if err != nil {
		fmt.Fprintf(w, "paths: <error: %v>\n", err)
		return
	}
	printPath(w, "config", paths.ConfigFile)
	if logFile, err := log.ResolveLogFilePath(); err == nil {
		printPath(w, "log", logFile)
	}
	printPath(w, "work", paths.WorkDir)
	printPath(w, "output", paths.OutputDir)
	printPath(w, "cache", paths.CacheDir)
}

func printPath(w io.Writer, name, value string) {
	_, err := os.Stat(value)
	switch {
	case err == nil:
		fmt.Fprintf(w, "path.%s: %s (exists)\n", name, value)
	case os.IsNotExist(err):
		fmt.Fprintf(w, "path.%s: %s (missing)\n", name, value)
	default:
		fmt.Fprintf(w, "path.%s: %s (error=%v)\n", name, value, err)
	}
}
