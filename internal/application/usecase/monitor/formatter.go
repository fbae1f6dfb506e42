package monitor

import (
	"fmt"
	"strings"

	"dexarb/internal/domain/model"
	dsvc "dexarb/internal/domain/service"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct {
	MinProfitPct float64
	TopN         int
}

func NewFormatter(minProfitPct float64, topN int) *Formatter {
	if topN <= 0 {
		topN = 5
	}
	return &Formatter{MinProfitPct: minProfitPct, TopN: topN}
}

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

func (f *Formatter) profitColor(p float64) string {
	switch dsvc.ProfitBand(p, f.MinProfitPct) {
	case +1:
		return ansiGreen
	case -1:
		return ansiRed
	default:
		return ansiYellow
	}
}

// Route 单个机会的一行描述
func (f *Formatter) Route(o model.Opportunity) string {
	return fmt.Sprintf("%s/%s %s->%s %s",
		o.TokenA, o.TokenB, o.VenueA, o.VenueB,
		colorize(fmt.Sprintf("%+.2f%%", o.ProfitPct), f.profitColor(o.ProfitPct)))
}

// Render 状态行：统计 + 当前最优机会
func (f *Formatter) Render(st *State, stats model.StatsSnapshot, mode RenderMode) string {
	top := st.Top()

	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}

	sb.WriteString(colorize("[DEXARB] ", ansiDim))
	sb.WriteString(fmt.Sprintf("scans=%d found=%d avg=%.4f last=%.3fs",
		stats.Scans, stats.TotalOpportunities, stats.AvgProfit, stats.LastScanTime))
	sb.WriteString(colorize("  ||  ", ansiDim))

	if len(top) == 0 {
		sb.WriteString(colorize("no opportunities", ansiYellow))
	} else {
		sb.WriteString(f.Route(top[0]))
		if len(top) > 1 {
			sb.WriteString(colorize(fmt.Sprintf(" (+%d more)", len(top)-1), ansiDim))
		}
	}

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

// RenderTop 前 N 个机会，每个一行
func (f *Formatter) RenderTop(opps []model.Opportunity) []string {
	n := len(opps)
	if n > f.TopN {
		n = f.TopN
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		o := opps[i]
		lines = append(lines, fmt.Sprintf("  #%d %s in=%.4f mid=%.6f out=%.6f",
			i+1, f.Route(o), o.InputAmount, o.IntermediateAmount, o.OutputAmount))
	}
	return lines
}
