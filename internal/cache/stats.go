package cache

import (
	"context"
	"encoding/json"

	"github.com/G-grbz/monwui/internal/domain"
)

// Stats counts cached records in one scope.
type Stats struct {
	Entities    int
	Memberships int
	Negatives   int
	Collections int
}

// Stats walks the scope's entities, memberships and member lists.
func (a *Accessor) Stats(ctx context.Context, scope domain.Scope) (Stats, error) {
	var s Stats
	if !a.Enabled() {
		return s, nil
	}

	err := a.kv.Iterate(ctx, domain.NamespaceItems, scope.Key()+"|", func(domain.Record) error {
		s.Entities++
		return nil
	})
	if err != nil {
		return s, err
	}

	err = a.kv.Iterate(ctx, domain.NamespaceMeta, MembershipKey(scope, ""), func(rec domain.Record) error {
		var m domain.Membership
		if err := json.Unmarshal(rec.Value, &m); err != nil {
			return nil
		}
		s.Memberships++
		if m.IsNegative() {
			s.Negatives++
		}
		return nil
	})
	if err != nil {
		return s, err
	}

	err = a.kv.Iterate(ctx, domain.NamespaceMeta, CollectionPrefix(scope), func(domain.Record) error {
		s.Collections++
		return nil
	})
	return s, err
}
