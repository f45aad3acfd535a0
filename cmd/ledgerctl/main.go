package main

import (
	"context"
	"flag"
	"os"
	"path"

	"armory-backend/internal/cli"
	"armory-backend/internal/pkg/logger"

	"github.com/google/subcommands"
)

func main() {
	logger.Setup("development", os.Getenv("LOG_LEVEL"))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range cli.Commands(cli.DefaultEnv()) {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
