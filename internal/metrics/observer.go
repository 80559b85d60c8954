package metrics

import "github.com/G-grbz/monwui/internal/domain"

// indexObserver implements domain.IndexObserver using the gauges declared
// in metrics.go.
type indexObserver struct{}

// NewIndexObserver creates an observer that mirrors indexer progress into
// prometheus gauges.
func NewIndexObserver() domain.IndexObserver {
	return indexObserver{}
}

func (indexObserver) OnProgress(p domain.IndexProgress) {
	IndexerCursor.WithLabelValues(p.Phase.String()).Set(float64(p.Cursor))
	if p.Done {
		IndexerIsRunning.Set(0)
	}
}

// RecordPurge adds a purge sweep's counts.
func RecordPurge(entityTTL, entityCapacity, metaTTL int) {
	CachePurgedRecords.WithLabelValues("entity_ttl").Add(float64(entityTTL))
	CachePurgedRecords.WithLabelValues("entity_capacity").Add(float64(entityCapacity))
	CachePurgedRecords.WithLabelValues("meta_ttl").Add(float64(metaTTL))
}
