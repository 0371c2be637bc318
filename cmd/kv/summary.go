package kv

import (
	"fmt"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	gometrics "github.com/rcrowley/go-metrics"
	"io"
	"os"
	"sort"
	"time"
)

// summaryPercentiles are the latency percentiles shown in the summary
var summaryPercentiles = []float64{0.5, 0.9, 0.99, 0.999, 0.9999}

// renderSummary renders the histograms and meters of registry as a table.
// Histograms are expected to hold nanoseconds.
func renderSummary(registry gometrics.Registry, w io.Writer) string {
	tw := table.NewWriter()
	if isTerminal(w) {
		tw.SetStyle(table.StyleRounded)
	}

	header := table.Row{"metric", "count", "rate/s", "mean", "p50", "p90", "p99", "p999", "p9999", "max"}
	tw.AppendHeader(header)

	// registry iteration order is random
	names := make([]string, 0)
	metrics := make(map[string]interface{})
	registry.Each(func(name string, i interface{}) {
		names = append(names, name)
		metrics[name] = i
	})
	sort.Strings(names)

	for _, name := range names {
		switch m := metrics[name].(type) {
		case gometrics.Histogram:
			s := m.Snapshot()
			row := table.Row{name, s.Count(), "", nsString(s.Mean())}
			for _, p := range s.Percentiles(summaryPercentiles) {
				row = append(row, nsString(p))
			}
			tw.AppendRow(append(row, nsString(float64(s.Max()))))
		case gometrics.Meter:
			s := m.Snapshot()
			tw.AppendRow(table.Row{name, s.Count(), fmt.Sprintf("%.1f", s.RateMean())})
		}
	}

	columnConfigs := make([]table.ColumnConfig, 0, len(header))
	for i := range header {
		align := text.AlignRight
		if i == 0 {
			align = text.AlignLeft
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// nsString formats a nanosecond value as a duration
func nsString(ns float64) string {
	return time.Duration(ns).Round(time.Microsecond / 10).String()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
