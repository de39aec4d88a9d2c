package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/joseph-ayodele/gradebook-relay/internal/app"
	"github.com/joseph-ayodele/gradebook-relay/internal/common"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("startup.failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	lambda.Start(a.Handler.HandleS3)
}
