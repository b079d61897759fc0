package main

import (
	"context"

	"research-agent/internal/di"
	"research-agent/internal/infrastructure/env"
	"research-agent/internal/infrastructure/userinteraction"
)

const queryPrompt = "What can i help you research? "

// Errors are printed, never turned into a non-zero exit code.
func main() {
	envService := env.NewEnvService()
	console := userinteraction.NewConsoleReporter()

	query, err := console.ReadQuery(context.Background(), queryPrompt)
	if err != nil {
		console.ShowError(context.Background(), "Failed to read query", err)
		return
	}

	cfg := di.ConfigFromEnv(envService)
	cfg.Query = query

	ctx, cancel := context.WithTimeout(context.Background(), cfg.AgentTimeout)
	defer cancel()

	container, err := di.NewContainer(ctx, cfg, console)
	if err != nil {
		console.ShowError(ctx, "Initialization failed", err)
		return
	}
	defer container.Close()

	if _, err := container.Research.Execute(ctx, query); err != nil {
		container.Logger.Error("Research failed", "error", err)
		console.ShowError(ctx, "Research failed", err)
	}
}
