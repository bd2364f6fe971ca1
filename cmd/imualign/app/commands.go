package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/roman-kulish/imu-alignment/internal/align"
	"github.com/roman-kulish/imu-alignment/internal/imu"
	"github.com/roman-kulish/imu-alignment/internal/storage"
)

func (a *App) alignAction(c *cli.Context) (err error) {
	if c.NArg() != 2 {
		return cli.Exit("align requires an input log and an output CSV file", 1)
	}
	input, output := c.Args().Get(0), c.Args().Get(1)

	termination := a.config.TerminationPolicy()
	if c.IsSet("termination") {
		if termination, err = align.ParseTermination(c.String("termination")); err != nil {
			return err
		}
	}

	aligner, err := align.NewAligner(a.devices(c),
		align.WithTermination(termination),
		align.WithLogger(a.logger),
		align.WithProgress(func(rows int) {
			a.logger.Debug("aligning", slog.String("rows", humanize.Comma(int64(rows))))
		}))
	if err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer closeWithError(f, &err)

	if fi, sErr := f.Stat(); sErr == nil {
		a.logger.Info("decoding log",
			slog.String("path", input),
			slog.String("size", humanize.Bytes(uint64(fi.Size()))),
			slog.Int("devices", aligner.Devices()),
			slog.String("termination", termination.String()))
	}

	batch, err := align.RunBatch(c.Context, f, aligner)
	if err != nil {
		return err
	}
	a.logDecoded(input, batch.Log)

	if err = writeFile(output, func(w io.Writer) error {
		return align.WriteCSV(w, batch.Result.Table)
	}); err != nil {
		return fmt.Errorf("writing aligned table: %w", err)
	}

	if c.Bool("split") {
		for _, stream := range batch.Log.Streams {
			path := splitPath(output, stream.Device())
			if err = writeFile(path, func(w io.Writer) error {
				return align.WriteStreamCSV(w, stream)
			}); err != nil {
				return fmt.Errorf("writing stream of device %d: %w", stream.Device(), err)
			}
		}
	}

	if c.Bool("store") {
		if err = a.store(c, input, batch); err != nil {
			return err
		}
	}

	return WriteReport(c.App.Writer, batch.Stats, batch.Result.Policy)
}

func (a *App) store(c *cli.Context, input string, batch *align.BatchResult) (err error) {
	store := a.openStore(c)
	defer closeWithError(store, &err)

	sessionID, err := store.CreateSession(c.Context, filepath.Base(input), batch.Log.Devices, a.config)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if err = store.StoreLog(c.Context, sessionID, batch.Log); err != nil {
		return fmt.Errorf("storing samples: %w", err)
	}
	if _, err = store.StoreStatistics(c.Context, sessionID, batch.Result.Policy.String(), batch.Stats); err != nil {
		return fmt.Errorf("storing statistics: %w", err)
	}

	a.logger.Info("stored session", slog.Int64("session", sessionID))
	return nil
}

func (a *App) ingestAction(c *cli.Context) (err error) {
	if c.NArg() != 1 {
		return cli.Exit("ingest requires an input log", 1)
	}
	input := c.Args().First()

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer closeWithError(f, &err)

	log, err := imu.ReadLog(f, a.devices(c))
	if err != nil {
		return fmt.Errorf("decoding log: %w", err)
	}
	a.logDecoded(input, log)

	store := a.openStore(c)
	defer closeWithError(store, &err)

	sessionID, err := store.CreateSession(c.Context, filepath.Base(input), log.Devices, a.config)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if err = store.StoreLog(c.Context, sessionID, log); err != nil {
		return fmt.Errorf("storing samples: %w", err)
	}

	_, err = fmt.Fprintf(c.App.Writer, "session %d: %s samples from %d of %d devices\n",
		sessionID, humanize.Comma(int64(log.Decoded)), log.Seen(), log.Devices)
	return err
}

func (a *App) windowAction(c *cli.Context) (err error) {
	start, err := imu.ParseClock(c.String("start"))
	if err != nil {
		return err
	}

	store := a.openStore(c)
	defer closeWithError(store, &err)

	session, err := store.Session(c.Context, c.Int64("session"))
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	query, err := a.windowQuery(session.Devices)
	if err != nil {
		return err
	}

	streams, err := store.ReadStreams(c.Context, session.ID, session.Devices, storage.WithStartTime(start))
	if err != nil {
		return fmt.Errorf("loading streams: %w", err)
	}

	window, err := query.Run(c.Context, streams, start, a.windowSeconds(c))
	if err != nil {
		return err
	}

	stats, err := align.ComputeStatistics(window.Result)
	if err != nil {
		return fmt.Errorf("computing statistics: %w", err)
	}

	if path := c.String("output"); path != "" {
		if err = writeFile(path, func(w io.Writer) error {
			return align.WriteCSV(w, window.Table)
		}); err != nil {
			return fmt.Errorf("writing window: %w", err)
		}
	}

	if _, err = fmt.Fprintf(c.App.Writer, "window %s, counters %d..%d (%d ticks), anchor %s\n",
		imu.FormatClock(start), window.StartCounter, window.EndCounter, window.Ticks, window.Anchor.Timestamp.Clock()); err != nil {
		return err
	}
	return WriteReport(c.App.Writer, stats, window.Policy)
}

func (a *App) watchAction(c *cli.Context) (err error) {
	start, err := imu.ParseClock(c.String("start"))
	if err != nil {
		return err
	}

	interval := a.config.Live.Interval.Duration()
	if c.IsSet("interval") {
		interval = c.Duration("interval")
	}
	historySize := a.config.Live.HistorySize
	if c.IsSet("history") {
		historySize = c.Int("history")
	}
	seconds := a.windowSeconds(c)

	store := a.openStore(c)
	defer closeWithError(store, &err)

	session, err := store.Session(c.Context, c.Int64("session"))
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	query, err := a.windowQuery(session.Devices)
	if err != nil {
		return err
	}

	live, err := align.NewLiveSession(store.Source(session.ID, session.Devices), query,
		align.WithHistorySize(historySize),
		align.WithSessionLogger(a.logger))
	if err != nil {
		return err
	}

	a.logger.Info("watching session",
		slog.Int64("session", session.ID),
		slog.String("live", live.ID().String()),
		slog.String("start", imu.FormatClock(start)),
		slog.Duration("interval", interval))

	return a.watch(c.Context, live, start, seconds, interval)
}

func (a *App) watch(ctx context.Context, live *align.LiveSession, start time.Duration, seconds int, interval time.Duration) error {
	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	for {
		_, _, err := live.Poll(ctx, start, seconds)
		switch {
		case imu.IsKind(err, imu.KindNoData):
			a.logger.Info("no data remains", slog.String("start", imu.FormatClock(start)))
			return nil
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			return err
		}

		rows, fill, empty := live.HistoryBuffer().Totals()
		a.logger.Info("loss history",
			slog.Int("windows", live.HistoryBuffer().Len()),
			slog.String("rows", humanize.Comma(int64(rows))),
			slog.String("fill", percent(fill, rows*live.Devices())),
			slog.String("empty", percent(empty, rows)))

		start += time.Duration(seconds) * time.Second

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *App) sessionsAction(c *cli.Context) (err error) {
	store := a.openStore(c)
	defer closeWithError(store, &err)

	sessions, err := store.Sessions(c.Context)
	if err != nil {
		return err
	}

	for _, s := range sessions {
		if _, err = fmt.Fprintf(c.App.Writer, "%4d  %-30s  %d devices  %s\n",
			s.ID, s.Source, s.Devices, humanize.Time(s.StartTime)); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) windowQuery(devices int) (*align.WindowQuery, error) {
	return align.NewWindowQuery(devices,
		align.WithReference(min(a.config.Live.ReferenceDevice, devices)),
		align.WithSamplingRate(a.config.Live.SamplingRate),
		align.WithTolerance(a.config.Live.Tolerance.Duration()),
		align.WithWindowLogger(a.logger))
}

func (a *App) windowSeconds(c *cli.Context) int {
	if c.IsSet("duration") {
		return c.Int("duration")
	}
	return a.config.Live.WindowSeconds
}

func (a *App) logDecoded(path string, log *imu.Log) {
	a.logger.Info("decoded log",
		slog.String("path", path),
		slog.String("lines", humanize.Comma(int64(log.Lines))),
		slog.String("decoded", humanize.Comma(int64(log.Decoded))),
		slog.Int("invalid", log.Invalid),
		slog.Int("malformed", log.Malformed),
		slog.Int("foreign", log.Foreign),
		slog.Int("seen", log.Seen()))
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeWithError(f, &err)

	return write(f)
}

// splitPath returns the side file of a device next to the aligned output,
// "out.csv" becoming "out_imu01.csv"
func splitPath(output string, device int) string {
	ext := filepath.Ext(output)
	return fmt.Sprintf("%s_imu%02d%s", strings.TrimSuffix(output, ext), device, ext)
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
