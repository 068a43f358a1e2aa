package models

import "time"

type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	ListingID  *int64    `json:"listing_id,omitempty"`
	Content    string    `json:"content"`
	Seen       bool      `json:"seen"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserSummary is the display slice of a user embedded in message payloads.
type UserSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// ListingSummary is the display slice of a listing a message refers to.
type ListingSummary struct {
	ID     int64    `json:"id"`
	Title  string   `json:"title"`
	Price  float64  `json:"price"`
	Photos []string `json:"photos,omitempty"`
}

// MessageDetail is a message expanded with participant and listing summaries.
type MessageDetail struct {
	Message
	Sender   UserSummary     `json:"sender"`
	Receiver UserSummary     `json:"receiver"`
	Listing  *ListingSummary `json:"listing,omitempty"`
}
