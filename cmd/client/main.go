package main

import (
	"context"

	"github.com/dpetukhov/rosterhub/internal/client/cli"
	"github.com/dpetukhov/rosterhub/internal/client/config"
)

func main() {
	cfg := config.LoadConfig()
	app := cli.NewApp(cfg)
	app.Run(context.Background())
}
