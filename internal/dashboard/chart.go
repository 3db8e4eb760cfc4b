package dashboard

import (
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"
)

// Chart geometry.
const (
	chartWidth   = 560
	chartHeight  = 240
	chartPadding = 32.0
	chartTicks   = 4
	incomeColor  = "#2563eb"
	expenseColor = "#f97316"
	axisColor    = "#475569"
	gridColor    = "#cbd5e1"
)

// IncomeChart renders grouped income and expense bars as inline SVG.
func IncomeChart(points []MonthPoint) template.HTML {
	if len(points) == 0 {
		return ""
	}
	plotW := chartWidth - 2*chartPadding
	plotH := chartHeight - 2*chartPadding

	maxVal := 0.0
	for _, p := range points {
		maxVal = math.Max(maxVal, math.Max(p.Income, p.Expenses))
	}
	if maxVal <= 0 {
		maxVal = 1
	}
	scale := plotH / maxVal
	baseline := chartPadding + plotH
	group := plotW / float64(len(points))
	bar := group / 3

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="income-chart-title">`, chartWidth, chartHeight)
	b.WriteString(`<title id="income-chart-title">Monthly income vs expenses</title>`)

	for i := 0; i <= chartTicks; i++ {
		ratio := float64(i) / chartTicks
		y := baseline - ratio*plotH
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4"></line>`, chartPadding, y, chartPadding+plotW, y, gridColor)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, chartPadding-6, y+4, axisColor, tickLabel(maxVal*ratio))
	}
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s"></line>`, chartPadding, baseline, chartPadding+plotW, baseline, axisColor)

	for i, p := range points {
		x := chartPadding + float64(i)*group
		label := template.HTMLEscapeString(monthLabel(p.Month))
		incomeH := p.Income * scale
		expenseH := p.Expenses * scale
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"><title>Income %s</title></rect>`, x+bar*0.4, baseline-incomeH, bar, incomeH, incomeColor, label)
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"><title>Expenses %s</title></rect>`, x+bar*1.5, baseline-expenseH, bar, expenseH, expenseColor, label)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, x+group/2, baseline+14, axisColor, label)
	}

	legendY := chartPadding - 14
	fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"></rect>`, chartPadding, legendY-8, incomeColor)
	fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10">Income</text>`, chartPadding+14, legendY, axisColor)
	fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"></rect>`, chartPadding+80, legendY-8, expenseColor)
	fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10">Expenses</text>`, chartPadding+94, legendY, axisColor)
	b.WriteString("</svg>")
	return template.HTML(b.String())
}

func monthLabel(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("Jan")
}

func tickLabel(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
