package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/imu-alignment/internal/align"
)

// WriteReport prints the loss statistics of an aligned table
func WriteReport(w io.Writer, stats *align.LossStatistics, policy align.FillPolicy) error {
	var sb strings.Builder

	h, m, s := stats.HMS()
	slots := stats.TotalRows * len(stats.Devices)

	fmt.Fprintf(&sb, "Rows:        %s\n", humanize.Comma(int64(stats.TotalRows)))
	fmt.Fprintf(&sb, "Time window: %dh %dm %ds\n", h, m, s)
	fmt.Fprintf(&sb, "Full rows:   %s (%s)\n", humanize.Comma(int64(stats.Full)), percent(stats.Full, stats.TotalRows))
	fmt.Fprintf(&sb, "Empty rows:  %s (%s)\n", humanize.Comma(int64(stats.EmptyCount)), percent(stats.EmptyCount, stats.TotalRows))
	fmt.Fprintf(&sb, "Fill count:  %s (%s of slots, %s)\n", humanize.Comma(int64(stats.FillCount)), percent(stats.FillCount, slots), policy)

	sb.WriteString("Missing devices per row:\n")
	for k, n := range stats.Histogram {
		fmt.Fprintf(&sb, "  %d: %s (%s)\n", k, humanize.Comma(int64(n)), percent(n, stats.TotalRows))
	}

	sb.WriteString("Absence per device:\n")
	for _, d := range stats.Devices {
		fmt.Fprintf(&sb, "  %02d: %s (%s)", d.Device, humanize.Comma(int64(d.Absent)), humanize.FormatFloat("#,###.##", d.Fraction*100)+"%")
		if d.Silent {
			sb.WriteString(" never reported")
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func percent(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return humanize.FormatFloat("#,###.##", float64(n)*100/float64(total)) + "%"
}
