// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/formcheck/internal/formatter"
)

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// loginCommand logs in and stores the access token and refresh cookie.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in to the analysis service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Username (prompted when omitted)",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Password (prompted when omitted)",
				Sources: cli.EnvVars("FORMCHECK_PASSWORD"),
			},
		},
		Action: r.Login,
	}
}

// registerCommand creates an account.
func registerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "register",
		Aliases: []string{"join"},
		Usage:   "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Username (prompted when omitted)",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Password (prompted when omitted)",
			},
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Real name (prompted when omitted)",
			},
		},
		Action: r.Register,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Log out and forget stored credentials",
		Action: r.Logout,
	}
}

func reissueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "reissue",
		Usage:  "Exchange the refresh cookie for a new access token",
		Action: r.Reissue,
	}
}

// statusCommand restores the session the way the app does on startup and reports it.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current session",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// uploadCommand uploads one or more videos for analysis.
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload squat videos for analysis",
		ArgsUsage: "<video> [video...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Concurrent uploads (1-4)",
				Value:   r.config.Upload.Workers,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Uploads started per second",
				Value: r.config.Upload.RateLimit,
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a report of the batch to this file",
			},
			&cli.StringFlag{
				Name:  "report-format",
				Usage: "Report format: csv, markdown, txt, json",
				Value: formatter.FormatMarkdown,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Upload,
	}
}

// historyCommand lists or exports previous uploads.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List previous uploads",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: txt, csv, markdown, json",
				Value:   formatter.FormatText,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only uploads with this status (completed, failed)",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Only uploads recorded for this user",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of uploads",
				Value: 50,
			},
		},
		Action: r.History,
	}
}

// sessionCommand continues a browser session from the CLI.
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage stored credentials",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import the refresh cookie (and access token) from a browser cURL command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
				},
				Action: r.SessionImport,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where TUI logs are written",
				Value: "~/.formcheck/tui.log",
			},
		},
		Action: r.TUI,
	}
}
