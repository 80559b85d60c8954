package indexer

import (
	"fmt"
	"strings"
	"time"

	"github.com/G-grbz/monwui/internal/cache"
)

// Mode selects which phase a fresh run starts in.
type Mode int

const (
	// ModeBoxset crawls collections first, then records negatives.
	ModeBoxset Mode = iota
	// ModeMovie resolves movies one by one (direct discovery).
	ModeMovie
)

func (m Mode) String() string {
	switch m {
	case ModeMovie:
		return "movie"
	default:
		return "boxset"
	}
}

// ParseMode accepts "boxset" or "movie".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "boxset":
		return ModeBoxset, nil
	case "movie":
		return ModeMovie, nil
	default:
		return ModeBoxset, fmt.Errorf("unknown indexer mode %q", s)
	}
}

// Options configures one indexer run.
type Options struct {
	// Throttle is slept after each movie that needed a live lookup (movie phase).
	Throttle time.Duration
	// CollectionThrottle is slept after each live member-list fetch.
	CollectionThrottle time.Duration
	// MaxItemsPerSession triggers a checkpoint and SessionCooldown after this
	// many movies in the movie phase. Zero disables the guard.
	MaxItemsPerSession int
	SessionCooldown    time.Duration

	// Aggressive schedules ticks without idle delay and ignores visibility.
	Aggressive bool
	Mode       Mode

	PageSize          int
	NegativeBatchSize int
	ErrorBackoff      time.Duration
	HiddenDelay       time.Duration

	// MembersTTL bounds reuse of a cached member list.
	MembersTTL time.Duration
	// MembershipTTL bounds reuse of a movie's mapping in the movie phase.
	MembershipTTL  time.Duration
	CandidateLimit int

	// Purge runs after a completed cycle. The zero value skips purging.
	Purge cache.PurgePolicy
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Throttle:           250 * time.Millisecond,
		CollectionThrottle: 500 * time.Millisecond,
		MaxItemsPerSession: 200,
		SessionCooldown:    30 * time.Second,
		Mode:               ModeBoxset,
		PageSize:           50,
		NegativeBatchSize:  100,
		ErrorBackoff:       10 * time.Second,
		HiddenDelay:        5 * time.Second,
		MembersTTL:         7 * 24 * time.Hour,
		MembershipTTL:      7 * 24 * time.Hour,
		CandidateLimit:     5,
	}
}

// withDefaults fills zero fields that must be positive. Throttles and the
// session guard keep zero as "off".
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.NegativeBatchSize <= 0 {
		o.NegativeBatchSize = d.NegativeBatchSize
	}
	if o.ErrorBackoff <= 0 {
		o.ErrorBackoff = d.ErrorBackoff
	}
	if o.HiddenDelay <= 0 {
		o.HiddenDelay = d.HiddenDelay
	}
	if o.MembersTTL <= 0 {
		o.MembersTTL = d.MembersTTL
	}
	if o.MembershipTTL <= 0 {
		o.MembershipTTL = d.MembershipTTL
	}
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = d.CandidateLimit
	}
	if o.Throttle < 0 {
		o.Throttle = 0
	}
	if o.CollectionThrottle < 0 {
		o.CollectionThrottle = 0
	}
	if o.MaxItemsPerSession < 0 {
		o.MaxItemsPerSession = 0
	}
	return o
}
