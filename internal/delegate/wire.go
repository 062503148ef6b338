package delegate

import (
	"studiocheck/internal/availability"
	"time"
)

// ScrapeResponse is the body of every /scrape response of the delegate service.
type ScrapeResponse struct {
	Success    bool                   `json:"success"`
	StudioID   string                 `json:"studioId,omitempty"`
	StudioName string                 `json:"studioName,omitempty"`
	Date       string                 `json:"date,omitempty"`
	DayOfWeek  string                 `json:"dayOfWeek,omitempty"`
	Rooms      []availability.Room    `json:"rooms"`
	Studios    []availability.Studio  `json:"studios"`
	Error      string                 `json:"error,omitempty"`
	ErrorKind  availability.ErrorKind `json:"errorKind,omitempty"`
}

// Health is the body of the delegate service's health check.
type Health struct {
	Status                  string    `json:"status"`
	Timestamp               time.Time `json:"timestamp"`
	Service                 string    `json:"service"`
	AvailableCreaStudios    []string  `json:"availableCreaStudios"`
	AvailableCivicHallRooms []string  `json:"availableCivicHallRooms"`
	CreaStrategy            string    `json:"creaStrategy"`
	CivicHallStrategy       string    `json:"civicHallStrategy"`
}

const ServiceName = "studio-check-scraper"

const (
	SiteCivicHall = "civic-hall"
	SiteCrea      = "crea"
)
