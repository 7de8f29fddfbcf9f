package github

import (
	"strconv"

	"github.com/pegov/authkit/social"
)

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func mapIdentity(user *githubUser, email string) *social.Identity {
	if user == nil {
		return nil
	}

	return &social.Identity{
		Provider:  "github",
		SubjectID: strconv.FormatInt(user.ID, 10),
		Email:     email,
	}
}
