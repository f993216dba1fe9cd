package model

import "time"

// User is an account authenticated through Google. Provider tokens are
// persisted so background sync can act on the user's behalf; they are
// never serialized.
type User struct {
	ID         string `json:"id" db:"id"`
	GoogleID   string `json:"googleId" db:"google_id"`
	Email      string `json:"email" db:"email"`
	Name       string `json:"name" db:"name"`
	PictureURL string `json:"pictureUrl" db:"picture_url"`

	AccessToken  string     `json:"-" db:"access_token"`
	RefreshToken string     `json:"-" db:"refresh_token"`
	TokenExpiry  *time.Time `json:"-" db:"token_expiry"`

	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// HasToken reports whether the user has provider credentials on file.
func (u User) HasToken() bool {
	return u.AccessToken != "" || u.RefreshToken != ""
}
