// Package export renders a night plan as JSON, CSV or an HTML altitude chart.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/kilianp07/nightplan/core/model"
)

// Plan is the exported form of a scheduled night.
type Plan struct {
	Night       string             `json:"night"`
	Site        string             `json:"site"`
	Telescope   string             `json:"telescope"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	Sunset      time.Time          `json:"sunset"`
	Sunrise     time.Time          `json:"sunrise"`
	Assignments []model.Assignment `json:"assignments"`
	Unscheduled []string           `json:"unscheduled"`
	Diagnostics []model.Diagnostic `json:"diagnostics"`
}

// NewPlan assembles the exported plan.
func NewPlan(n *model.Night, telescope string, sched model.Schedule) Plan {
	return Plan{
		Night:       n.Date.Format("2006-01-02"),
		Site:        n.Site.Name,
		Telescope:   telescope,
		Start:       n.GlobalStart,
		End:         n.GlobalEnd,
		Sunset:      n.Sunset,
		Sunrise:     n.Sunrise,
		Assignments: sched.Assignments,
		Unscheduled: sched.Unscheduled,
		Diagnostics: sched.Diagnostics,
	}
}

// WriteJSON writes the plan to w in JSON format.
func WriteJSON(w io.Writer, p Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// FormatRA renders a right ascension in degrees as hours, minutes, seconds.
func FormatRA(deg float64) string {
	return fmt.Sprint(sexa.FmtRA(unit.RAFromDeg(deg)))
}

// FormatDec renders a declination in degrees as degrees, minutes, seconds.
func FormatDec(deg float64) string {
	return fmt.Sprint(sexa.FmtAngle(unit.AngleFromDeg(deg)))
}

var csvHeader = []string{"order", "target", "ra", "dec", "state", "start", "end", "side", "airmass"}

// WriteCSV writes one row per target in list order. Unscheduled targets have
// empty start, end, side and airmass columns.
func WriteCSV(w io.Writer, targets []*model.Target) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range targets {
		rec := []string{
			strconv.Itoa(t.Order),
			t.Name,
			FormatRA(t.RA),
			FormatDec(t.Dec),
			string(t.State),
			"", "", "", "",
		}
		if t.State == model.StateScheduled || t.State == model.StateObserved {
			rec[5] = t.Assigned.Start.Format(time.RFC3339)
			rec[6] = t.Assigned.End.Format(time.RFC3339)
			rec[7] = t.Side.String()
			rec[8] = strconv.FormatFloat(t.Airmass, 'f', 3, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHTML renders the altitude of every target with visibility across the
// night, plus the moon, as an interactive line chart. Samples outside a
// target's assigned interval are drawn dimmed by a second series.
func WriteHTML(w io.Writer, n *model.Night, telescope string, targets []*model.Target) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s %s", telescope, n.Date.Format("2006-01-02")),
			Subtitle: n.Site.Name,
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "UTC"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Altitude (deg)", Min: 0, Max: 90}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	xAxis := make([]string, n.Len())
	for i, ts := range n.Times {
		xAxis[i] = ts.UTC().Format("15:04")
	}
	line.SetXAxis(xAxis)

	if len(n.MoonAlt) == n.Len() {
		line.AddSeries("Moon", altitudeData(n, n.MoonAlt, model.Interval{}))
	}
	for _, t := range targets {
		if t.Visibility == nil || len(t.Visibility.Alt) != n.Len() {
			continue
		}
		line.AddSeries(t.Name, altitudeData(n, t.Visibility.Alt, model.Interval{}))
		if t.State == model.StateScheduled || t.State == model.StateObserved {
			line.AddSeries(t.Name+" (assigned)", altitudeData(n, t.Visibility.Alt, t.Assigned),
				charts.WithLineStyleOpts(opts.LineStyle{Width: 4}))
		}
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// altitudeData converts a series to chart points. Points below the horizon
// and, when only is set, outside it are left empty so the line breaks there.
func altitudeData(n *model.Night, alt []float64, only model.Interval) []opts.LineData {
	data := make([]opts.LineData, len(alt))
	for i, a := range alt {
		if a < 0 || (!only.Empty() && !only.ContainsTime(n.Times[i])) {
			data[i] = opts.LineData{Value: "-"}
			continue
		}
		data[i] = opts.LineData{Value: math.Round(a*10) / 10}
	}
	return data
}
