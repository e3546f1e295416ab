package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samber/lo"

	"github.com/talgya/epicity/internal/engine"
)

// WriteSummary prints one row per city: peak infections, final attack rate
// and the tick at which every agent had been infected, if any.
func WriteSummary(w io.Writer, series []*engine.Series) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CITY\tN\tTICKS\tPEAK I\tPEAK AT\tI+R\tATTACK\tCONVERGED\tMEAN BETA")
	for _, s := range series {
		converged := "-"
		if s.ConvergedAt != nil {
			converged = fmt.Sprintf("%d", *s.ConvergedAt)
		}
		attack := 0.0
		if s.N > 0 {
			attack = float64(s.TotalInfected) / float64(s.N)
		}
		meanBeta := 0.0
		if len(s.Beta) > 0 {
			meanBeta = lo.Sum(s.Beta) / float64(len(s.Beta))
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.1f%%\t%s\t%.5f\n",
			s.Name, s.N, len(s.Ticks), s.PeakInfected, s.PeakTick,
			s.TotalInfected, attack*100, converged, meanBeta)
	}
	return tw.Flush()
}
