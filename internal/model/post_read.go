package model

import "time"

type PostRead struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PostSlug  string    `json:"post_slug"`
	CreatedAt time.Time `json:"created_at"`
}
