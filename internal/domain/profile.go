package domain

import "time"

type Profile struct {
	ProfileID string    `json:"profile_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Address struct {
	ID        int64  `json:"id,omitempty"`
	UserID    string `json:"user_id"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	IsDefault bool   `json:"is_default"`
}

type Review struct {
	ID        int64           `json:"id,omitempty"`
	ProductID string          `json:"product_id"`
	UserID    string          `json:"user_id"`
	Rating    int             `json:"rating"`
	Comment   string          `json:"comment,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Profile   *ReviewAuthor   `json:"profile,omitempty"`
	Product   *ProductSummary `json:"product,omitempty"`
}

type ReviewAuthor struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}
