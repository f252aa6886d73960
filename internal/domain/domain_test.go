package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		user    string
		color   string
		wantErr error
	}{
		{"valid", "u1", "Ada", "#ff0000", nil},
		{"empty name allowed", "u1", "", "", nil},
		{"empty id", "", "Ada", "#fff", ErrUserIDEmpty},
		{"long id", strings.Repeat("x", MaxUserIDLen+1), "Ada", "", ErrUserIDTooLong},
		{"long name", "u1", strings.Repeat("n", MaxUsernameLen+1), "", ErrUsernameTooLong},
		{"long color", "u1", "Ada", strings.Repeat("c", MaxColorLen+1), ErrColorTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{ID: UserID(tt.id), Name: tt.user, Color: tt.color}
			if err := u.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMemberIdleSince(t *testing.T) {
	seen := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMember(&User{ID: "u1"}, seen)

	if m.IdleSince(seen.Add(-time.Second)) {
		t.Error("Member seen after cutoff should not be idle")
	}
	if !m.IdleSince(seen.Add(time.Second)) {
		t.Error("Member seen before cutoff should be idle")
	}
}

func TestDefaultFilesAreFresh(t *testing.T) {
	a := DefaultFiles()
	a[0].Content = "mutated"

	b := DefaultFiles()
	if len(b) != 2 {
		t.Fatalf("Expected 2 default files, got %d", len(b))
	}
	if b[0].Content == "mutated" {
		t.Error("DefaultFiles should return a fresh slice each call")
	}
}
