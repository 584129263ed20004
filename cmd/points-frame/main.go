// Package main is the points-frame command itself.
package main

import (
	"context"
	"os"

	"go.viam.com/utils"

	"go.viam.com/pointsframe/cli"
	"go.viam.com/pointsframe/logging"
)

var logger = logging.NewLogger("points-frame")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	return cli.NewApp(os.Stdin, os.Stdout, os.Stderr, logger).RunContext(ctx, args)
}
