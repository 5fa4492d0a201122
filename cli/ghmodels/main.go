package main

import (
	"context"
	"os"
	"os/signal"

	ghmodelscmder "github.com/papercomputeco/ghmodels/cmd/ghmodels"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := ghmodelscmder.NewGhmodelsCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
