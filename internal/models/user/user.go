package user

import "time"

// User mirrors an account issued by the external auth provider.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	AvatarURL *string   `json:"avatarUrl" db:"avatar_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.AvatarURL != nil {
		avatar := *u.AvatarURL
		c.AvatarURL = &avatar
	}
	return &c
}

// NormalizeAvatar turns an empty avatar into null.
func (u *User) NormalizeAvatar() {
	if u.AvatarURL != nil && *u.AvatarURL == "" {
		u.AvatarURL = nil
	}
}
