package reporting

import (
	"fmt"
	"strings"
	"time"

	"strataquant/internal/domain"
)

// RenderComparisonMarkdown renders a strategy comparison report.
func RenderComparisonMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Strategy Comparison\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Symbol != "" {
		sb.WriteString(fmt.Sprintf("Series: %s %s\n\n", r.Symbol, r.Interval))
	}

	sb.WriteString("| Strategy | Return % | Sharpe | Max DD % | Trades |\n")
	sb.WriteString("|----------|----------|--------|----------|--------|\n")
	for _, row := range r.Rows {
		sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f | %d |\n",
			row.Name,
			row.TotalReturn*100,
			row.SharpeRatio,
			row.MaxDrawdown*100,
			row.TotalTrades,
		))
	}
	sb.WriteString("\n")

	if len(r.Missing) > 0 {
		sb.WriteString("## Missing Runs\n\n")
		for _, id := range r.Missing {
			sb.WriteString(fmt.Sprintf("- %s\n", id))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderComparisonTable renders rows as a fixed-width console table.
func RenderComparisonTable(rows []ComparisonRow) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-20s %12s %12s %12s %12s\n", "Strategy", "Return %", "Sharpe", "Max DD %", "Trades"))
	sb.WriteString(strings.Repeat("=", 72))
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%-20s %11.2f%% %12.2f %11.2f%% %12d\n",
			row.Name,
			row.TotalReturn*100,
			row.SharpeRatio,
			row.MaxDrawdown*100,
			row.TotalTrades,
		))
	}
	return sb.String()
}

// RenderSweepMarkdown renders the top n sweep rows, already ordered by the caller.
func RenderSweepMarkdown(top []domain.OptimizationResult, total int) string {
	var sb strings.Builder

	sb.WriteString("# Parameter Sweep\n\n")
	sb.WriteString(fmt.Sprintf("Combinations tested: %d\n\n", total))
	sb.WriteString("| Rank | Fast | Slow | Return % | Sharpe | Max DD % | Trades |\n")
	sb.WriteString("|------|------|------|----------|--------|----------|--------|\n")
	for i, r := range top {
		sb.WriteString(fmt.Sprintf("| %d | %d | %d | %.2f | %.2f | %.2f | %d |\n",
			i+1,
			r.FastPeriod,
			r.SlowPeriod,
			r.TotalReturn*100,
			r.SharpeRatio,
			r.MaxDrawdown*100,
			r.TotalTrades,
		))
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderWalkForwardMarkdown renders in-sample vs out-of-sample figures.
// overfit adds a warning section.
func RenderWalkForwardMarkdown(r *domain.WalkForwardResult, overfit bool) string {
	var sb strings.Builder

	sb.WriteString("# Walk-Forward Validation\n\n")
	sb.WriteString(fmt.Sprintf("Train bars: %d | Test bars: %d\n\n", r.TrainSize, r.TestSize))
	sb.WriteString(fmt.Sprintf("Best parameters: SMA %d/%d\n\n", r.BestFastPeriod, r.BestSlowPeriod))

	sb.WriteString("| Metric | In-Sample | Out-of-Sample | Degradation % |\n")
	sb.WriteString("|--------|-----------|---------------|---------------|\n")
	sb.WriteString(fmt.Sprintf("| Return %% | %.2f | %.2f | %.2f |\n",
		r.InSampleReturn*100, r.OutOfSampleReturn*100, r.DegradationReturn))
	sb.WriteString(fmt.Sprintf("| Sharpe | %.2f | %.2f | %.2f |\n",
		r.InSampleSharpe, r.OutOfSampleSharpe, r.DegradationSharpe))
	sb.WriteString("\n")

	if overfit {
		sb.WriteString("**Warning:** out-of-sample Sharpe degraded by more than 50%. The parameters may be overfit.\n\n")
	}

	return sb.String()
}
