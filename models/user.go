package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type UsersDocument struct {
	SchemaVersion int    `json:"schema_version"`
	Users         []User `json:"users"`
}

func (d *UsersDocument) Normalize() {
	if d.Users == nil {
		d.Users = make([]User, 0)
	}
	d.SchemaVersion = 1
}

func (d *UsersDocument) FindByUsername(username string) *User {
	for i := range d.Users {
		if d.Users[i].Username == username {
			return &d.Users[i]
		}
	}
	return nil
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
