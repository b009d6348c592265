// Package models contains the server-side domain types.
package models

import "time"

// Account is the durable record of a registered user.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	Roles        Roles
	Enabled      bool
	Lockout      Lockout
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy, so stores never share mutable state with callers.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.PasswordHash = append([]byte(nil), a.PasswordHash...)
	c.Roles = a.Roles.Clone()
	if a.LastLogin != nil {
		t := *a.LastLogin
		c.LastLogin = &t
	}
	return &c
}

// Profile is the public projection of an Account. It never carries the
// password hash.
type Profile struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	Roles            []string   `json:"roles"`
	Enabled          bool       `json:"enabled"`
	AccountNonLocked bool       `json:"accountNonLocked"`
	LastLogin        *time.Time `json:"lastLogin"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (a *Account) Profile() *Profile {
	return &Profile{
		ID:               a.ID,
		Username:         a.Username,
		Email:            a.Email,
		Roles:            a.Roles.Slice(),
		Enabled:          a.Enabled,
		AccountNonLocked: !a.Lockout.Locked(),
		LastLogin:        a.LastLogin,
		CreatedAt:        a.CreatedAt,
	}
}
