package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"trafficserver/internal/app"
	"trafficserver/internal/config"
	"trafficserver/internal/logger"
)

func main() {
	cliApp := &cli.App{
		Name:  "trafficserver",
		Usage: "stream annotated traffic video with a live vehicle count",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"CONFIG_FILE"},
			},
			&cli.IntFlag{Name: "port", Usage: "HTTP port (overrides PORT)"},
			&cli.StringFlag{Name: "model", Usage: "path to the YOLOv8 ONNX model (overrides MODEL_PATH)"},
			&cli.StringFlag{Name: "video", Usage: "video file used for source=video (overrides VIDEO_PATH)"},
			&cli.IntFlag{Name: "webcam", Usage: "webcam device index (overrides WEBCAM_DEVICE)"},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func run(c *cli.Context) error {
	cfg := config.Load()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return err
		}
	}

	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("model") {
		cfg.ModelPath = c.String("model")
	}
	if c.IsSet("video") {
		cfg.VideoPath = c.String("video")
	}
	if c.IsSet("webcam") {
		cfg.WebcamDevice = c.Int("webcam")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(cfg, logger)
	if err != nil {
		logger.Error("Startup failed: %v", err)
		return err
	}

	return application.Run(ctx)
}
