package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/danwue/elekter/cmd"
)

func main() {
	app := &cli.App{
		Name:      "elekter",
		Usage:     "switches devices on and off by day-ahead electricity prices",
		ArgsUsage: "<config-file>",
		Action:    cmd.ElekterCommand,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "simulate the current day without executing any commands",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
			&cli.StringFlag{
				Name:    "database-url",
				EnvVars: []string{"DATABASE_URL"},
				Usage:   "optional Postgres URL for transition history",
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Usage:   "optional MQTT broker for device state",
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
