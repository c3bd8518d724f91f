package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/ivle-sim/internal/engine"
	"github.com/talgya/ivle-sim/internal/metrics"
	"github.com/talgya/ivle-sim/internal/world"
)

func printSummary(w io.Writer, res *result) {
	st := res.sim.Stats
	cal := res.sim.Calendar

	fmt.Fprintf(w, "\nRun %s\n", res.id)
	fmt.Fprintf(w, "%s students over %s days (%s to %s) in %d rooms, %s m² total\n",
		humanize.Comma(int64(st.Actors)),
		humanize.Comma(int64(res.config.Days)),
		engine.DayLabel(cal.Start),
		engine.DayLabel(cal.End()),
		res.catalog.Len(),
		humanize.CommafWithDigits(world.TotalArea(res.catalog), 1),
	)
	fmt.Fprintf(w, "%s events: %s movements, %s interactions across %s active student-days\n",
		humanize.Comma(int64(len(res.events))),
		humanize.Comma(int64(st.Movements)),
		humanize.Comma(int64(st.Interactions)),
		humanize.Comma(int64(st.ActiveDays)),
	)
	fmt.Fprintf(w, "Simulated time: %s hours (computed in %s)\n\n",
		humanize.CommafWithDigits(st.SimulatedTime.Hours(), 1),
		res.elapsed.Round(time.Millisecond),
	)

	printLevelTable(w, metrics.Summarise(res.raw))
}

func printLevelTable(w io.Writer, summaries []metrics.LevelSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No engagement recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tSTUDENTS\tMEAN SCORE\tMIN\tMAX")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.Level,
			humanize.Comma(int64(s.Count)),
			humanize.FormatFloat("#,###.##", s.MeanScore),
			humanize.FormatFloat("#,###.##", s.MinScore),
			humanize.FormatFloat("#,###.##", s.MaxScore),
		)
	}
	tw.Flush()
}
