package jellyfin

// AuthResponse represents the response from Jellyfin's AuthenticateByName endpoint
type AuthResponse struct {
	User        User   `json:"User"`
	AccessToken string `json:"AccessToken"`
	ServerID    string `json:"ServerId"`
}

// User represents a Jellyfin user
type User struct {
	ID       string `json:"Id"`
	Name     string `json:"Name"`
	ServerID string `json:"ServerId"`
}

// SystemInfo represents the public system info from Jellyfin
type SystemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
	ID         string `json:"Id"`
}

// ItemsResponse represents a paginated list of items from Jellyfin
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
	StartIndex       int    `json:"StartIndex"`
}

// Item is the subset of BaseItemDto we read
type Item struct {
	ID                string          `json:"Id"`
	Name              string          `json:"Name"`
	SortName          string          `json:"SortName,omitempty"`
	Overview          string          `json:"Overview,omitempty"`
	Type              string          `json:"Type"`
	ProductionYear    int             `json:"ProductionYear,omitempty"`
	RunTimeTicks      int64           `json:"RunTimeTicks,omitempty"` // Duration in 100-nanosecond units
	CommunityRating   float64         `json:"CommunityRating,omitempty"`
	OfficialRating    string          `json:"OfficialRating,omitempty"`
	Genres            []string        `json:"Genres,omitempty"`
	RemoteTrailers    []RemoteTrailer `json:"RemoteTrailers,omitempty"`
	ImageTags         ImageTags       `json:"ImageTags,omitempty"`
	BackdropImageTags []string        `json:"BackdropImageTags,omitempty"`
	ParentID          string          `json:"ParentId,omitempty"`
	SeriesID          string          `json:"SeriesId,omitempty"`
	UserData          *UserData       `json:"UserData,omitempty"`
}

// ImageTags contains image tag IDs for various image types
type ImageTags struct {
	Primary string `json:"Primary,omitempty"`
	Thumb   string `json:"Thumb,omitempty"`
	Logo    string `json:"Logo,omitempty"`
}

// RemoteTrailer is an external trailer link
type RemoteTrailer struct {
	Name string `json:"Name,omitempty"`
	URL  string `json:"Url"`
}

// UserData contains user-specific data for an item (watch status)
type UserData struct {
	PlayCount  int  `json:"PlayCount"`
	IsFavorite bool `json:"IsFavorite"`
	Played     bool `json:"Played"`
}
