package tui

import "github.com/G-grbz/monwui/internal/domain"

// ProgressMsg carries one indexer progress update
type ProgressMsg struct {
	Progress domain.IndexProgress
}

// TickMsg advances the spinner
type TickMsg struct{}
