package domain

// IndexerState is the persisted crawl state for one scope.
// Cursors only move forward within a phase and reset to 0 on transition.
type IndexerState struct {
	Phase        Phase
	MovieCursor  int
	BoxsetCursor int
	SeenBoxsets  map[string]struct{}
	DoneAt       int64
}

// NewIndexerState returns the initial state for a fresh cycle.
func NewIndexerState() IndexerState {
	return IndexerState{
		Phase:       PhaseBoxset,
		SeenBoxsets: make(map[string]struct{}),
	}
}

// Seen reports whether a collection was already processed this cycle.
func (s IndexerState) Seen(id string) bool {
	_, ok := s.SeenBoxsets[id]
	return ok
}

// MarkSeen records a collection as processed this cycle.
func (s *IndexerState) MarkSeen(id string) {
	if s.SeenBoxsets == nil {
		s.SeenBoxsets = make(map[string]struct{})
	}
	s.SeenBoxsets[id] = struct{}{}
}

// SeenIDs returns the seen set as a slice.
func (s IndexerState) SeenIDs() []string {
	ids := make([]string, 0, len(s.SeenBoxsets))
	for id := range s.SeenBoxsets {
		ids = append(ids, id)
	}
	return ids
}

// Clone returns a deep copy.
func (s IndexerState) Clone() IndexerState {
	c := s
	c.SeenBoxsets = make(map[string]struct{}, len(s.SeenBoxsets))
	for id := range s.SeenBoxsets {
		c.SeenBoxsets[id] = struct{}{}
	}
	return c
}

// IndexProgress reports indexer activity to observers.
type IndexProgress struct {
	RunID       string
	Phase       Phase
	Cursor      int
	Total       int
	Collections int // collections processed this run
	Positive    int // membership mappings written this run
	Negative    int // negative entries written this run
	Paused      bool
	Done        bool
	Error       error
}

// IndexObserver receives progress updates during indexing.
type IndexObserver interface {
	OnProgress(progress IndexProgress)
}

// NoOpObserver discards progress updates (for testing/batch operations).
type NoOpObserver struct{}

func (NoOpObserver) OnProgress(IndexProgress) {}
