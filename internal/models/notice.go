package models

import "time"

type Notice struct {
	ID            int64     `json:"id"`
	InstituteCode string    `json:"institute_code"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}
