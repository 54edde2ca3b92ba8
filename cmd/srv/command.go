package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	s.ctx = s.newContext()

	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "PatentX"
	app.Usage = ""
	app.Commands = []*cli.Command{
		{
			Action:      server.startApi,
			Name:        "api",
			Usage:       "Start service api",
			Flags:       []cli.Flag{},
			Category:    "Api",
			Description: `Used for start service api, it main service included all apis.`,
		},
		{
			Action:      server.startWorker,
			Name:        "worker",
			Usage:       "Start launchpad and reward workers",
			Flags:       []cli.Flag{},
			Category:    "Worker",
			Description: `Used to start workers that subscribe to the message queue and submit blockchain transactions.`,
		},
		{
			Action:      server.startCron,
			Name:        "cron",
			Usage:       "Start cron jobs",
			Flags:       []cli.Flag{},
			Category:    "Worker",
			Description: `Used to start periodical jobs, like sweeping expired crowdfunding campaigns.`,
		},
		{
			Action: server.startMigrate,
			Name:   "migrate",
			Usage:  "Migrate database",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "version", Value: "sql"},
			},
			Category:    "Database",
			Description: `Used to apply database migrations and exit.`,
		},
	}

	s.app = app
}
