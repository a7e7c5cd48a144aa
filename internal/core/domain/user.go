package domain

// User models an account held by the credential store.
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	PasswordHash   string `json:"-"`
	Active         bool   `json:"active"`
	ChangePassword bool   `json:"change_password"`
}

// Profile is the claims snapshot embedded in every issued token and echoed
// back to the client alongside it. It is frozen at issuance time: flipping
// Active or rotating the password does not touch tokens already handed out.
type Profile struct {
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	Active         bool     `json:"active"`
	ChangePassword bool     `json:"change_password"`
	Buckets        []string `json:"aws_buckets"`
}

// NewProfile builds the claims snapshot for u with the given visible buckets.
func NewProfile(u *User, buckets []string) Profile {
	visible := make([]string, len(buckets))
	copy(visible, buckets)
	return Profile{
		Email:          u.Email,
		Name:           u.Name,
		Active:         u.Active,
		ChangePassword: u.ChangePassword,
		Buckets:        visible,
	}
}
