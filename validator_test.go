package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Email:     "alice@example.com",
		Username:  "alice",
		Password1: "sup3rsecret",
		Password2: "sup3rsecret",
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	assert.NoError(t, validRegisterRequest().Validate())

	t.Run("email", func(t *testing.T) {
		for _, email := range []string{"", "a@b.c", "not-an-email", "spaces in@example.com"} {
			req := validRegisterRequest()
			req.Email = email
			assert.Error(t, req.Validate(), "email %q", email)
		}
	})

	t.Run("username", func(t *testing.T) {
		bad := []string{
			"",
			"abc",              // too short
			"12345",            // no letter
			"has space",        // bad charset
			"has.dot",          // bad charset
			"ричард",           // non-ascii
			"thisusernameiswaytoolongtofit",
		}
		for _, username := range bad {
			req := validRegisterRequest()
			req.Username = username
			assert.Error(t, req.Validate(), "username %q", username)
		}

		good := []string{"alice", "alice_92", "a-b-c-1", "A1b2"}
		for _, username := range good {
			req := validRegisterRequest()
			req.Username = username
			assert.NoError(t, req.Validate(), "username %q", username)
		}
	})

	t.Run("password", func(t *testing.T) {
		req := validRegisterRequest()
		req.Password1 = "short"
		req.Password2 = "short"
		assert.Error(t, req.Validate())

		req = validRegisterRequest()
		req.Password2 = "different1"
		assert.Error(t, req.Validate())

		req = validRegisterRequest()
		req.Password1 = "thispasswordisfartoolongtobeacceptedhere"
		req.Password2 = req.Password1
		assert.Error(t, req.Validate())
	})

	t.Run("phone", func(t *testing.T) {
		req := validRegisterRequest()
		req.Phone = "+14155552671"
		assert.NoError(t, req.Validate())

		req.Phone = "not-a-phone"
		assert.Error(t, req.Validate())

		req.Phone = "+1999999"
		assert.Error(t, req.Validate())
	})
}

func TestLoginRequestValidate(t *testing.T) {
	assert.NoError(t, LoginRequest{Login: "alice", Password: "sup3rsecret"}.Validate())
	assert.Error(t, LoginRequest{Password: "sup3rsecret"}.Validate())
	assert.Error(t, LoginRequest{Login: "alice"}.Validate())
}

func TestPasswordRequestsValidate(t *testing.T) {
	assert.NoError(t, PasswordSetRequest{Password1: "sup3rsecret", Password2: "sup3rsecret"}.Validate())
	assert.Error(t, PasswordSetRequest{Password1: "sup3rsecret", Password2: "mismatch99"}.Validate())

	assert.NoError(t, PasswordChangeRequest{
		OldPassword: "oldpassword",
		Password1:   "sup3rsecret",
		Password2:   "sup3rsecret",
	}.Validate())
	assert.Error(t, PasswordChangeRequest{
		Password1: "sup3rsecret",
		Password2: "sup3rsecret",
	}.Validate())

	assert.NoError(t, PasswordResetRequest{
		Token:     "some-token",
		Password1: "sup3rsecret",
		Password2: "sup3rsecret",
	}.Validate())
	assert.Error(t, PasswordResetRequest{
		Password1: "sup3rsecret",
		Password2: "sup3rsecret",
	}.Validate())
}

func TestChangeRequestsValidate(t *testing.T) {
	assert.NoError(t, EmailChangeRequest{Email: "new@example.com"}.Validate())
	assert.Error(t, EmailChangeRequest{Email: "nope"}.Validate())

	assert.NoError(t, UsernameChangeRequest{Username: "newname"}.Validate())
	assert.Error(t, UsernameChangeRequest{Username: "no"}.Validate())
}
