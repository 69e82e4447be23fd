package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

func main() {
	app := mustBootstrapAPI()

	err := app.Run()
	app.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("filmtrack-api stopped", "error", err.Error())
		os.Exit(1)
	}
}
