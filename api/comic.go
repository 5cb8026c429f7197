package api

import "time"

// ComicState is the JSON view of the comic image entity.
type ComicState struct {
	EntityID string `json:"entity_id"`
	// State is the publication date of the cached comic, empty until the first successful refresh.
	State            string     `json:"state"`
	PublicationDate  string     `json:"publication_date,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	ImageLastUpdated *time.Time `json:"image_last_updated,omitempty"`
	RefreshInterval  string     `json:"refresh_interval"`
}

// RefreshEvent is sent to event stream subscribers after every refresh cycle.
type RefreshEvent struct {
	Updated         bool   `json:"updated"`
	PublicationDate string `json:"publication_date,omitempty"`
}
