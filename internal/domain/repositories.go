package domain

import (
	"context"
)

// Item fields requested from the catalog.
const (
	FieldGenres         = "Genres"
	FieldOverview       = "Overview"
	FieldRemoteTrailers = "RemoteTrailers"
	FieldSortName       = "SortName"
	FieldParentID       = "ParentId"
)

// ItemQuery describes one page request against the catalog items endpoint.
type ItemQuery struct {
	IncludeItemTypes []string
	ParentID         string
	SearchTerm       string
	IDs              []string
	SortBy           []string
	SortOrder        string
	StartIndex       int
	Limit            int
	Fields           []string
	Recursive        bool

	// IsPlayed filters on watch state when non-nil.
	IsPlayed *bool

	// IDsOnly asks for the cheapest projection: no images, no user data.
	IDsOnly bool
}

// ItemPage is one page of catalog results.
type ItemPage struct {
	Items      []Item
	TotalCount int
}

// Catalog is the remote paginated catalog. All calls observe ctx.
type Catalog interface {
	// Items runs a paginated search.
	Items(ctx context.Context, q ItemQuery) (ItemPage, error)

	// Ancestors returns the containment chain of an item, nearest first.
	Ancestors(ctx context.Context, itemID string) ([]Item, error)

	// Genres returns genre names for the given item types.
	Genres(ctx context.Context, itemTypes []string) ([]string, error)
}
