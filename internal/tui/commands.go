package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/G-grbz/monwui/internal/domain"
)

// TickCmd returns a command that sends a TickMsg after delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// WaitForProgress reads one update from ch. A closed channel reads as done.
func WaitForProgress(ch <-chan domain.IndexProgress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			p.Done = true
		}
		return ProgressMsg{Progress: p}
	}
}
