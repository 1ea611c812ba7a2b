package models

import "time"

type Notification struct {
	ID        string
	UserID    string
	Message   string
	IsRead    bool
	Link      string
	CreatedAt time.Time
}
