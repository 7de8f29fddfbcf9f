package google

import "github.com/pegov/authkit/social"

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func mapIdentity(info *googleUserInfo) *social.Identity {
	if info == nil {
		return nil
	}

	return &social.Identity{
		Provider:  "google",
		SubjectID: info.Sub,
		Email:     info.Email,
	}
}
