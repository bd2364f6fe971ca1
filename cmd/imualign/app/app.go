package app

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/roman-kulish/imu-alignment/internal/storage"
)

const (
	AppName = "imualign"
	AppDesc = "Align and measure data loss in multi-IMU wearable recordings"
)

// App holds the state shared by all commands
type App struct {
	logger   *slog.Logger
	logLevel *slog.LevelVar
	config   *Config
}

// New creates the command line application. The log level variable is
// updated from the configuration before any command runs.
func New(logger *slog.Logger, logLevel *slog.LevelVar) *cli.App {
	a := App{
		logger:   logger,
		logLevel: logLevel,
		config:   DefaultConfig(),
	}

	return &cli.App{
		Name:  AppName,
		Usage: AppDesc,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error), overrides the configuration",
			},
		},
		Before:   a.before,
		Commands: a.commands(),
	}
}

func (a *App) before(c *cli.Context) error {
	if path := c.String("config"); path != "" {
		config, err := LoadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load configuration file '%s': %w", path, err)
		}
		a.config = config
	}

	if c.IsSet("log-level") {
		a.config.Settings.LogLevel = c.String("log-level")
	}

	level, err := ParseLogLevel(a.config.Settings.LogLevel)
	if err != nil {
		return err
	}
	a.logLevel.Set(level)

	return nil
}

func (a *App) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "align",
			Usage:     "Align a raw log and write the aligned table as CSV",
			ArgsUsage: "<input> <output.csv>",
			Flags: []cli.Flag{
				devicesFlag(),
				&cli.StringFlag{
					Name:  "termination",
					Usage: "Termination policy: stop-at-first-exhausted or continue-until-all-exhausted",
				},
				&cli.BoolFlag{
					Name:  "split",
					Usage: "Also write the decoded stream of every device to its own CSV file",
				},
				&cli.BoolFlag{
					Name:  "store",
					Usage: "Persist samples and statistics into the database",
				},
				databaseFlag(),
			},
			Action: a.alignAction,
		},
		{
			Name:      "ingest",
			Usage:     "Decode a raw log into a new database session",
			ArgsUsage: "<input>",
			Flags: []cli.Flag{
				devicesFlag(),
				databaseFlag(),
			},
			Action: a.ingestAction,
		},
		{
			Name:  "window",
			Usage: "Align one window of a stored session with the hold-last policy",
			Flags: []cli.Flag{
				databaseFlag(),
				sessionFlag(),
				startFlag(),
				durationFlag(),
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "Write the aligned window as CSV to this file",
				},
			},
			Action: a.windowAction,
		},
		{
			Name:  "watch",
			Usage: "Poll consecutive windows of a stored session and track data loss",
			Flags: []cli.Flag{
				databaseFlag(),
				sessionFlag(),
				startFlag(),
				durationFlag(),
				&cli.DurationFlag{
					Name:  "interval",
					Usage: "Time between polls, defaults to the configured interval",
				},
				&cli.IntFlag{
					Name:  "history",
					Usage: "Number of windows kept in the loss history",
				},
			},
			Action: a.watchAction,
		},
		{
			Name:  "sessions",
			Usage: "List the sessions stored in the database",
			Flags: []cli.Flag{
				databaseFlag(),
			},
			Action: a.sessionsAction,
		},
	}
}

func devicesFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "devices",
		Aliases: []string{"n"},
		Usage:   "Number of IMU devices, defaults to the configured count",
	}
}

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "db",
		Usage: "Path to the Sqlite database, defaults to the configured database",
	}
}

func sessionFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:     "session",
		Aliases:  []string{"s"},
		Usage:    "Session identifier",
		Required: true,
	}
}

func startFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "start",
		Usage:    "Window start time of day, HH:MM:SS or HH:MM:SS:fff",
		Required: true,
	}
}

func durationFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "duration",
		Aliases: []string{"d"},
		Usage:   "Window length in seconds, defaults to the configured window",
	}
}

func (a *App) devices(c *cli.Context) int {
	if c.IsSet("devices") {
		return c.Int("devices")
	}
	return a.config.Alignment.Devices
}

func (a *App) openStore(c *cli.Context) *storage.SqliteStore {
	path := a.config.Storage.Database
	if c.IsSet("db") {
		path = c.String("db")
	}
	return storage.NewSqliteStore(path, storage.WithMaxBatchSize(a.config.Storage.MaxBatchSize))
}
