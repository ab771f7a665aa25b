package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxPictureURLLength bounds the stored profile picture URL.
const MaxPictureURLLength = 512

// GuestName is shown when no email is known.
const GuestName = "Guest"

// Profile is the public record of an authenticated user.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Picture   string    `json:"picture,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
}

// Username derives the display name from the profile email.
func (p *Profile) Username() string {
	if p == nil {
		return GuestName
	}
	return Username(p.Email)
}

// Username turns "jane.doe@example.com" into "Jane Doe". Only the first dot of
// the local part becomes a space.
func Username(email string) string {
	if email == "" {
		return GuestName
	}
	local, _, _ := strings.Cut(email, "@")
	local = strings.Replace(local, ".", " ", 1)

	title := cases.Title(language.Und)
	parts := strings.Split(local, " ")
	for i, part := range parts {
		parts[i] = title.String(part)
	}
	return strings.Join(parts, " ")
}
