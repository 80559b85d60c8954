package domain

import "strings"

// Item types as reported by the catalog.
const (
	ItemTypeMovie  = "Movie"
	ItemTypeBoxSet = "BoxSet"
	ItemTypeSeries = "Series"
)

// Scope partitions every cached record by server and user.
type Scope struct {
	ServerID string
	UserID   string
}

// Key returns the "serverId|userId" partition key.
func (s Scope) Key() string {
	return s.ServerID + "|" + s.UserID
}

// EntityKey returns the "scope|itemId" composite key for an item in this scope.
func (s Scope) EntityKey(itemID string) string {
	return s.Key() + "|" + itemID
}

// IsZero reports whether the scope carries no identity.
func (s Scope) IsZero() bool {
	return s.ServerID == "" && s.UserID == ""
}

// ImageTags holds image tag IDs for the image types we render.
type ImageTags struct {
	Primary string `json:"primary,omitempty"`
	Logo    string `json:"logo,omitempty"`
	Thumb   string `json:"thumb,omitempty"`
}

// Trailer is a remote trailer reference.
type Trailer struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

// Item is the canonical cached catalog record. Every ingestion path maps
// remote payloads into this shape exactly once.
type Item struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	SortName        string    `json:"sortName,omitempty"`
	Type            string    `json:"type"`
	Year            int       `json:"year,omitempty"`
	Overview        string    `json:"overview,omitempty"`
	CommunityRating float64   `json:"communityRating,omitempty"`
	OfficialRating  string    `json:"officialRating,omitempty"`
	Genres          []string  `json:"genres,omitempty"`
	Trailers        []Trailer `json:"trailers,omitempty"`
	ImageTags       ImageTags `json:"imageTags,omitempty"`
	BackdropTags    []string  `json:"backdropTags,omitempty"`
	ParentID        string    `json:"parentId,omitempty"`
	SeriesID        string    `json:"seriesId,omitempty"`
	RunTimeTicks    int64     `json:"runTimeTicks,omitempty"`
	Played          bool      `json:"played,omitempty"`

	// UpdatedAt is the unix millisecond timestamp of the last cache write.
	UpdatedAt int64 `json:"updatedAt"`
}

// IsBoxSet reports whether the item is a collection.
func (i Item) IsBoxSet() bool {
	return strings.EqualFold(i.Type, ItemTypeBoxSet)
}

// Minimal strips fields that are not needed for collection member lists.
func (i Item) Minimal() Item {
	return Item{
		ID:              i.ID,
		Name:            i.Name,
		SortName:        i.SortName,
		Type:            i.Type,
		Year:            i.Year,
		CommunityRating: i.CommunityRating,
		OfficialRating:  i.OfficialRating,
		Genres:          i.Genres,
		ImageTags:       i.ImageTags,
		BackdropTags:    i.BackdropTags,
		ParentID:        i.ParentID,
		RunTimeTicks:    i.RunTimeTicks,
		Played:          i.Played,
		UpdatedAt:       i.UpdatedAt,
	}
}

// Membership maps a movie to the collection it belongs to. An empty
// CollectionID is a negative entry: the movie was checked and belongs to
// no collection. A missing record means the movie was never checked.
type Membership struct {
	MovieID        string `json:"movieId"`
	CollectionID   string `json:"collectionId"`
	CollectionName string `json:"collectionName,omitempty"`
	UpdatedAt      int64  `json:"updatedAt"`
}

// IsNegative reports whether this is a confirmed "no collection" entry.
func (m Membership) IsNegative() bool {
	return m.CollectionID == ""
}

// CollectionMembers is the denormalized member list of a collection.
type CollectionMembers struct {
	CollectionID string `json:"collectionId"`
	Name         string `json:"name,omitempty"`
	Items        []Item `json:"items"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// IDs returns the member ids in list order.
func (c CollectionMembers) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ID)
	}
	return ids
}
