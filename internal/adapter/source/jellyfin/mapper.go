package jellyfin

import (
	"github.com/G-grbz/monwui/internal/domain"
)

// MapItem converts a Jellyfin DTO into the canonical cached record.
// This is the only place raw payloads become domain.Item.
func MapItem(it Item) domain.Item {
	out := domain.Item{
		ID:              it.ID,
		Name:            it.Name,
		SortName:        it.SortName,
		Type:            it.Type,
		Year:            it.ProductionYear,
		Overview:        it.Overview,
		CommunityRating: it.CommunityRating,
		OfficialRating:  it.OfficialRating,
		Genres:          it.Genres,
		ImageTags: domain.ImageTags{
			Primary: it.ImageTags.Primary,
			Logo:    it.ImageTags.Logo,
			Thumb:   it.ImageTags.Thumb,
		},
		BackdropTags: it.BackdropImageTags,
		ParentID:     it.ParentID,
		SeriesID:     it.SeriesID,
		RunTimeTicks: it.RunTimeTicks,
	}
	for _, t := range it.RemoteTrailers {
		if t.URL == "" {
			continue
		}
		out.Trailers = append(out.Trailers, domain.Trailer{Name: t.Name, URL: t.URL})
	}
	if it.UserData != nil {
		out.Played = it.UserData.Played
	}
	return out
}

// MapItems converts a page of DTOs, dropping entries without an id.
func MapItems(items []Item) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		out = append(out, MapItem(it))
	}
	return out
}
