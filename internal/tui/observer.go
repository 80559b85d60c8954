package tui

import "github.com/G-grbz/monwui/internal/domain"

// ChannelObserver adapts domain.IndexObserver to a buffered channel for
// Bubble Tea. It never blocks the indexer.
type ChannelObserver struct {
	ch chan domain.IndexProgress
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(ch chan domain.IndexProgress) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// OnProgress sends progress to the channel. Intermediate updates are dropped
// when the channel is full; a final update evicts a stale one instead.
func (o *ChannelObserver) OnProgress(progress domain.IndexProgress) {
	for {
		select {
		case o.ch <- progress:
			return
		default:
		}
		if !progress.Done {
			return
		}
		select {
		case <-o.ch:
		default:
		}
	}
}
