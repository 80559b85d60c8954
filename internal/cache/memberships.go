package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/G-grbz/monwui/internal/domain"
)

// GetMembership returns the cached mapping for movieID, or nil when the movie
// was never checked. A non-nil result with an empty CollectionID is a
// confirmed "no collection".
func (a *Accessor) GetMembership(ctx context.Context, scope domain.Scope, movieID string) *domain.Membership {
	var m domain.Membership
	updatedAt, ok := a.GetMeta(ctx, MembershipKey(scope, movieID), &m)
	if !ok {
		return nil
	}
	if m.UpdatedAt == 0 {
		m.UpdatedAt = updatedAt
	}
	if m.MovieID == "" {
		m.MovieID = movieID
	}
	return &m
}

// GetMemberships batch-reads mappings. Ids with no record are absent from the result.
func (a *Accessor) GetMemberships(ctx context.Context, scope domain.Scope, movieIDs []string) map[string]domain.Membership {
	out := make(map[string]domain.Membership, len(movieIDs))
	if !a.Enabled() || len(movieIDs) == 0 {
		return out
	}

	keys := make([]string, len(movieIDs))
	for i, id := range movieIDs {
		keys[i] = MembershipKey(scope, id)
	}
	recs, err := a.kv.GetMany(ctx, domain.NamespaceMeta, keys)
	if err != nil {
		a.softFail("get memberships", scope.Key(), err)
		return out
	}

	for i, key := range keys {
		rec, ok := recs[key]
		if !ok {
			continue
		}
		var m domain.Membership
		if err := json.Unmarshal(rec.Value, &m); err != nil {
			a.softFail("decode membership", key, err)
			continue
		}
		if m.UpdatedAt == 0 {
			m.UpdatedAt = rec.UpdatedAt
		}
		m.MovieID = movieIDs[i]
		out[movieIDs[i]] = m
	}
	return out
}

// PutMemberships upserts mappings in one transaction and stamps UpdatedAt.
func (a *Accessor) PutMemberships(ctx context.Context, scope domain.Scope, memberships []domain.Membership) error {
	if !a.Enabled() || len(memberships) == 0 {
		return nil
	}

	now := a.NowMillis()
	recs := make([]domain.Record, 0, len(memberships))
	for _, m := range memberships {
		if m.MovieID == "" {
			continue
		}
		m.UpdatedAt = now
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode membership %s: %w", m.MovieID, err)
		}
		recs = append(recs, domain.Record{Key: MembershipKey(scope, m.MovieID), Value: data, UpdatedAt: now})
	}
	return a.kv.BatchPut(ctx, domain.NamespaceMeta, recs)
}

// GetCollectionMembers returns the cached member list or nil on miss.
func (a *Accessor) GetCollectionMembers(ctx context.Context, scope domain.Scope, collectionID string) *domain.CollectionMembers {
	var c domain.CollectionMembers
	updatedAt, ok := a.GetMeta(ctx, CollectionKey(scope, collectionID), &c)
	if !ok {
		return nil
	}
	if c.UpdatedAt == 0 {
		c.UpdatedAt = updatedAt
	}
	if c.CollectionID == "" {
		c.CollectionID = collectionID
	}
	return &c
}

// PutCollectionMembers overwrites the member list and stamps UpdatedAt.
func (a *Accessor) PutCollectionMembers(ctx context.Context, scope domain.Scope, members domain.CollectionMembers) error {
	if !a.Enabled() || members.CollectionID == "" {
		return nil
	}
	members.UpdatedAt = a.NowMillis()
	return a.SetMeta(ctx, CollectionKey(scope, members.CollectionID), members)
}

// ListCollections returns every cached member list in scope, in key order.
func (a *Accessor) ListCollections(ctx context.Context, scope domain.Scope) []domain.CollectionMembers {
	if !a.Enabled() {
		return nil
	}

	var out []domain.CollectionMembers
	err := a.kv.Iterate(ctx, domain.NamespaceMeta, CollectionPrefix(scope), func(rec domain.Record) error {
		var c domain.CollectionMembers
		if err := json.Unmarshal(rec.Value, &c); err != nil {
			a.softFail("decode collection", rec.Key, err)
			return nil
		}
		if c.UpdatedAt == 0 {
			c.UpdatedAt = rec.UpdatedAt
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		a.softFail("list collections", scope.Key(), err)
	}
	return out
}
