// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"unicode/utf8"
)

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 64
	MaxColorLen    = 32
)

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUsernameTooLong = errors.New("username too long")
	ErrColorTooLong    = errors.New("color too long")
)

type UserID string

// User is the identity a client announces on join. IDs are chosen by the
// client and only unique within a single room.
type User struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (u *User) Validate() error {
	switch {
	case u.ID == "":
		return ErrUserIDEmpty
	case utf8.RuneCountInString(string(u.ID)) > MaxUserIDLen:
		return ErrUserIDTooLong
	case utf8.RuneCountInString(u.Name) > MaxUsernameLen:
		return ErrUsernameTooLong
	case len(u.Color) > MaxColorLen:
		return ErrColorTooLong
	}
	return nil
}
