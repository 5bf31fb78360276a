package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Entity kinds ────────────────────

// EntityKind identifies one of the named attribute kinds a movie can be
// linked to. Each kind carries its own table and join-column names so the
// repositories never build identifiers by string concatenation.
type EntityKind int

const (
	KindTag EntityKind = iota
	KindStar
	KindSeries
)

func (k EntityKind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindStar:
		return "star"
	case KindSeries:
		return "series"
	}
	return "unknown"
}

// Table returns the entity table for the kind.
func (k EntityKind) Table() string {
	switch k {
	case KindTag:
		return "tags"
	case KindStar:
		return "stars"
	case KindSeries:
		return "series"
	}
	return ""
}

// MappingTable returns the junction table linking movies to the kind.
func (k EntityKind) MappingTable() string {
	switch k {
	case KindTag:
		return "tags_mapping"
	case KindStar:
		return "stars_mapping"
	case KindSeries:
		return "series_mapping"
	}
	return ""
}

// JoinColumn returns the entity id column inside the junction table.
func (k EntityKind) JoinColumn() string {
	switch k {
	case KindTag:
		return "tag_id"
	case KindStar:
		return "star_id"
	case KindSeries:
		return "series_id"
	}
	return ""
}

// Kinds lists every entity kind, in attach order.
var Kinds = []EntityKind{KindTag, KindStar, KindSeries}

// ──────────────────── Movie ────────────────────

// MovieKey is the compound key identifying a movie at its source:
// the company (label) code plus the company-local id, e.g. ABC + 001.
type MovieKey struct {
	CompanyName string `json:"company_name"`
	CompanyID   string `json:"company_id"`
}

// Display renders the key the way the source site and users write it.
func (k MovieKey) Display() string {
	return k.CompanyName + "-" + k.CompanyID
}

func (k MovieKey) Valid() bool {
	return k.CompanyName != "" && k.CompanyID != ""
}

type Movie struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	CompanyName string    `json:"company_name" db:"company_name"`
	CompanyID   string    `json:"company_id" db:"company_id"`
	CoverPath   string    `json:"cover_path" db:"cover_path"`
	ReleaseDate string    `json:"release_date" db:"release_date"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (m *Movie) Key() MovieKey {
	return MovieKey{CompanyName: m.CompanyName, CompanyID: m.CompanyID}
}

// ──────────────────── Entities ────────────────────

// Entity is a deduplicated named attribute (tag, star, or series) shared
// across movies. PhotoPath is only populated for stars.
type Entity struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	PhotoPath *string   `json:"photo_path,omitempty" db:"photo_path"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EntityInfo is the read-side view of an entity, with its photo already
// rewritten through the media proxy.
type EntityInfo struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	PhotoURL string    `json:"photo_url,omitempty"`
}

// ──────────────────── Read-side assemblies ────────────────────

// MovieDetail is a movie reassembled from its normalized pieces, with
// media paths proxied and the display code derived from the compound key.
type MovieDetail struct {
	ID            uuid.UUID    `json:"id"`
	Title         string       `json:"title"`
	JavID         string       `json:"javId"`
	PosterFileURL string       `json:"posterFileURL"`
	ReleaseDate   string       `json:"release_date"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Tags          []EntityInfo `json:"tags"`
	Stars         []EntityInfo `json:"stars"`
	Series        *EntityInfo  `json:"series,omitempty"`
}

// MovieList is one page of assembled movies plus the overall total.
type MovieList struct {
	Movies []*MovieDetail `json:"movies"`
	Total  int            `json:"total"`
	Page   int            `json:"page"`
	Size   int            `json:"size"`
}

// EntityMovieList is a reverse lookup result: the entity itself plus the
// page of movies linked to it, most recently linked first.
type EntityMovieList struct {
	Entity *EntityInfo    `json:"entity"`
	Movies []*MovieDetail `json:"movies"`
	Total  int            `json:"total"`
	Page   int            `json:"page"`
	Size   int            `json:"size"`
}
