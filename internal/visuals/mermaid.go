package visuals

import (
	"fmt"
	"strings"

	"inspect-mcp/internal/inspection"
	"inspect-mcp/internal/model"
)

// statusOrder fixes slice order so the pie is stable between calls.
var statusOrder = []model.LightStatus{
	model.LightPending,
	model.LightCanInspect,
	model.LightUnnecessary,
	model.LightCompleted,
}

// GenerateStatusPie creates a Mermaid pie chart of the board's traffic-light mix.
func GenerateStatusPie(board inspection.Board) string {
	if len(board.Items) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("pie title Inspection Status\n")
	for _, s := range statusOrder {
		if n := board.Counts[s]; n > 0 {
			sb.WriteString(fmt.Sprintf("    \"%s\" : %d\n", s, n))
		}
	}
	sb.WriteString("```")
	return sb.String()
}

// GenerateDueChart creates a Mermaid bar chart of days remaining until due for
// the most urgent items. Overdue items show as negative bars.
func GenerateDueChart(board inspection.Board) string {
	var labels []string
	var values []string
	minVal, maxVal := 0, 0

	// Limit to 20 items to avoid overwhelming the text chart context
	for _, it := range board.Items {
		if len(labels) == 20 {
			break
		}
		if it.Status == model.LightCompleted {
			continue
		}
		// Never-inspected items count from epoch; clamp so they do not flatten the chart.
		days := it.RemainingDays
		if days < -365 {
			days = -365
		}
		safeName := strings.ReplaceAll(it.Barcode, "\"", "'")
		if safeName == "" {
			safeName = it.ID
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", safeName))
		values = append(values, fmt.Sprintf("%d", days))
		if days < minVal {
			minVal = days
		}
		if days > maxVal {
			maxVal = days
		}
	}
	if len(labels) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Days Until Due (Most Urgent 20)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Days\" %d --> %d\n", minVal, maxVal+1))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}
