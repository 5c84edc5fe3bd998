package server

import (
	"fmt"

	"wakewatch/internal/models"
)

func statusText(s models.ConnectivityState) string {
	switch {
	case s.IsChecking:
		return "Checking..."
	case s.IsOnline:
		return "Online"
	default:
		return "Offline"
	}
}

func statusMessage(s models.ConnectivityState) string {
	switch {
	case s.IsChecking:
		return "Checking server status..."
	case s.IsOnline:
		return "Server is running and ready"
	case s.WakeUpAttempts > 0:
		return fmt.Sprintf("Server is sleeping. Wake-up attempts: %d", s.WakeUpAttempts)
	default:
		return "Server is sleeping. AI features may be temporarily unavailable."
	}
}

// formatCountdown renders seconds as m:ss.
func formatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
