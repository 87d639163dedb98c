package users

import (
	"errors"
	"time"
)

var (
	ErrUserExists    = errors.New("user already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("wrong password")
)

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	XP           int64     `json:"xp"`
	Level        int       `json:"level"`
	Rank         string    `json:"rank"`
	CreatedAt    time.Time `json:"createdAt"`
}

type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
}
