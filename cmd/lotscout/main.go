package main

import (
	"context"

	"lotscout-backend/cmd/lotscout/commands"
	"lotscout-backend/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	telemetry.SetupFromEnv(context.Background(), "lotscout")
	commands.ExecuteContext(context.Background())
}
