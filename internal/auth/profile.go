package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"casa-backend/internal/users"
)

type googleProfile struct {
	Sub        string `json:"sub"`
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func (p googleProfile) user(id string) users.User {
	return users.User{
		ID:         id,
		Email:      p.Email,
		FullName:   p.Name,
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		PictureURL: p.Picture,
	}
}

// fetchProfile reads the signed-in user's profile with an authorized client.
func fetchProfile(ctx context.Context, client *http.Client, endpoint string) (googleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return googleProfile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return googleProfile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return googleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	// v2 userinfo reports the subject as "id".
	if p.Sub == "" {
		p.Sub = p.ID
	}
	if p.Sub == "" {
		return googleProfile{}, fmt.Errorf("userinfo missing subject")
	}
	return p, nil
}
