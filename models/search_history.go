package models

import "time"

// SearchHistory keeps one row per normalized query with a monotonic counter.
// A scheduled sweep bounds the table to the top entries by count.
type SearchHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Query          string    `gorm:"size:255;uniqueIndex;not null" json:"query"`
	SearchCount    int       `gorm:"not null;default:1;index" json:"search_count"`
	LastSearchedAt time.Time `gorm:"index" json:"last_searched_at"`
}
