package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/G-grbz/monwui/internal/domain"
)

// MembershipResponse is the JSON form of a movie's mapping.
type MembershipResponse struct {
	MovieID        string    `json:"movieId"`
	CollectionID   string    `json:"collectionId,omitempty"`
	CollectionName string    `json:"collectionName,omitempty"`
	None           bool      `json:"none"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ItemResponse is the JSON form of a cached item.
type ItemResponse struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Year   int      `json:"year,omitempty"`
	Genres []string `json:"genres,omitempty"`
	Played bool     `json:"played,omitempty"`
}

// ProgressResponse is the JSON form of indexer progress.
type ProgressResponse struct {
	Running     bool   `json:"running"`
	RunID       string `json:"runId,omitempty"`
	Phase       string `json:"phase"`
	Cursor      int    `json:"cursor"`
	Total       int    `json:"total"`
	Collections int    `json:"collections"`
	Positive    int    `json:"positive"`
	Negative    int    `json:"negative"`
	Paused      bool   `json:"paused"`
	Error       string `json:"error,omitempty"`
}

// CollectionMatchResponse is one name search hit.
type CollectionMatchResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
	Score   int    `json:"score"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func liveParam(r *http.Request) bool {
	live, _ := strconv.ParseBool(r.URL.Query().Get("live"))
	return live
}

func (s *Server) collectionForMovie(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	m, err := s.collections.GetCollectionForMovie(r.Context(), id, liveParam(r))
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "movie not found")
		return
	case err != nil:
		s.logger.Debug("membership request aborted", "movie", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
		return
	case m == nil:
		writeError(w, http.StatusNotFound, "membership unknown")
		return
	}

	writeJSON(w, http.StatusOK, MembershipResponse{
		MovieID:        id,
		CollectionID:   m.CollectionID,
		CollectionName: m.CollectionName,
		None:           m.IsNegative(),
		UpdatedAt:      time.UnixMilli(m.UpdatedAt).UTC(),
	})
}

func (s *Server) membersOfCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	items, err := s.collections.GetMembersOfCollection(r.Context(), id, liveParam(r))
	if err != nil {
		s.logger.Debug("members request aborted", "collection", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}

	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ItemResponse{
			ID:     it.ID,
			Name:   it.Name,
			Type:   it.Type,
			Year:   it.Year,
			Genres: it.Genres,
			Played: it.Played,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) findCollections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing q")
		return
	}

	matches := s.collections.FindCollections(r.Context(), q)
	out := make([]CollectionMatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, CollectionMatchResponse{ID: m.CollectionID, Name: m.Name, Members: m.Members, Score: m.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) indexerStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.progress())
}

func (s *Server) startIndexer(w http.ResponseWriter, _ *http.Request) {
	started := s.indexer.Start(s.baseCtx, s.indexerOpts)
	writeJSON(w, http.StatusAccepted, map[string]any{"started": started, "progress": s.progress()})
}

func (s *Server) stopIndexer(w http.ResponseWriter, _ *http.Request) {
	s.indexer.Stop()
	writeJSON(w, http.StatusOK, s.progress())
}

func (s *Server) progress() ProgressResponse {
	p := s.indexer.Progress()
	resp := ProgressResponse{
		Running:     s.indexer.Running(),
		RunID:       p.RunID,
		Phase:       p.Phase.String(),
		Cursor:      p.Cursor,
		Total:       p.Total,
		Collections: p.Collections,
		Positive:    p.Positive,
		Negative:    p.Negative,
		Paused:      p.Paused,
	}
	if p.Error != nil {
		resp.Error = p.Error.Error()
	}
	return resp
}
