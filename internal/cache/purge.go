package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/G-grbz/monwui/internal/domain"
)

// PurgePolicy bounds cache growth. Zero values disable the matching sweep.
type PurgePolicy struct {
	EntityTTL    time.Duration
	MaxEntities  int
	MetaTTL      time.Duration
	MetaPrefixes []string
}

// PurgeReport counts what a sweep removed.
type PurgeReport struct {
	EntitiesExpired int
	EntitiesEvicted int
	MetaExpired     int
}

// Total returns the number of removed records.
func (r PurgeReport) Total() int {
	return r.EntitiesExpired + r.EntitiesEvicted + r.MetaExpired
}

type keyAge struct {
	key       string
	updatedAt int64
}

// Purge sweeps entities in scope by TTL, then evicts the least recently
// written entities until at most MaxEntities remain, then sweeps expired
// meta records under MetaPrefixes.
func (a *Accessor) Purge(ctx context.Context, scope domain.Scope, policy PurgePolicy) (PurgeReport, error) {
	var report PurgeReport
	if !a.Enabled() {
		return report, nil
	}
	now := a.NowMillis()

	var entities []keyAge
	var expired []string
	err := a.kv.Iterate(ctx, domain.NamespaceItems, scope.Key()+"|", func(rec domain.Record) error {
		if policy.EntityTTL > 0 && Stale(rec.UpdatedAt, policy.EntityTTL, now) {
			expired = append(expired, rec.Key)
			return nil
		}
		entities = append(entities, keyAge{key: rec.Key, updatedAt: rec.UpdatedAt})
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("scan entities: %w", err)
	}
	if err := a.kv.Delete(ctx, domain.NamespaceItems, expired); err != nil {
		return report, fmt.Errorf("delete expired entities: %w", err)
	}
	report.EntitiesExpired = len(expired)

	if policy.MaxEntities > 0 && len(entities) > policy.MaxEntities {
		sort.SliceStable(entities, func(i, j int) bool {
			return entities[i].updatedAt < entities[j].updatedAt
		})
		overflow := entities[:len(entities)-policy.MaxEntities]
		keys := make([]string, len(overflow))
		for i, e := range overflow {
			keys[i] = e.key
		}
		if err := a.kv.Delete(ctx, domain.NamespaceItems, keys); err != nil {
			return report, fmt.Errorf("evict entities: %w", err)
		}
		report.EntitiesEvicted = len(keys)
	}

	for _, prefix := range policy.MetaPrefixes {
		if policy.MetaTTL <= 0 {
			break
		}
		var stale []string
		err := a.kv.Iterate(ctx, domain.NamespaceMeta, prefix, func(rec domain.Record) error {
			if Stale(rec.UpdatedAt, policy.MetaTTL, now) {
				stale = append(stale, rec.Key)
			}
			return nil
		})
		if err != nil {
			return report, fmt.Errorf("scan meta %s: %w", prefix, err)
		}
		if err := a.kv.Delete(ctx, domain.NamespaceMeta, stale); err != nil {
			return report, fmt.Errorf("delete meta %s: %w", prefix, err)
		}
		report.MetaExpired += len(stale)
	}

	a.logger.Info("cache purged",
		"scope", scope.Key(),
		"entities_expired", report.EntitiesExpired,
		"entities_evicted", report.EntitiesEvicted,
		"meta_expired", report.MetaExpired)
	return report, nil
}
