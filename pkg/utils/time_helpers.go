package utils

import (
	"fmt"
	"strings"
)

// FormatMinutesToHumanReadable renders minutes as "1d 2h 3m".
func FormatMinutesToHumanReadable(totalMinutes int) string {
	if totalMinutes <= 0 {
		return "0m"
	}

	days := totalMinutes / (24 * 60)
	totalMinutes %= 24 * 60
	hours := totalMinutes / 60
	minutes := totalMinutes % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}

	return strings.Join(parts, " ")
}
