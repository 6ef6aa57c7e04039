package users

import (
	"strings"
	"time"
)

// User is a signed-in patient. Guests never have a stored profile.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	PictureURL string `json:"pictureUrl"`
	// ChatLanguage is the language medical chat replies are written in.
	// Empty means the server default.
	ChatLanguage string    `json:"chatLanguage,omitempty"`
	LastSignInAt time.Time `json:"lastSignInAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var chatLanguages = map[string]string{
	"arabic":     "Arabic",
	"english":    "English",
	"french":     "French",
	"german":     "German",
	"hindi":      "Hindi",
	"indonesian": "Indonesian",
	"persian":    "Persian",
	"spanish":    "Spanish",
	"turkish":    "Turkish",
	"urdu":       "Urdu",
}

// CanonicalLanguage maps a user-supplied language name onto its stored form.
func CanonicalLanguage(raw string) (string, bool) {
	lang, ok := chatLanguages[strings.ToLower(strings.TrimSpace(raw))]
	return lang, ok
}
