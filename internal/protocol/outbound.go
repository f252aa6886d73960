package protocol

import (
	"encoding/json"

	"github.com/dkeye/CollabRelay/internal/domain"
)

type Welcome struct {
	Type        string `json:"type"`
	ClientID    string `json:"clientId"`
	ClientToken string `json:"clientToken,omitempty"`
	Message     string `json:"message"`
}

func NewWelcome(clientID, token string) Welcome {
	return Welcome{
		Type:        TypeWelcome,
		ClientID:    clientID,
		ClientToken: token,
		Message:     "Connected to collaboration relay",
	}
}

type UsersList struct {
	Type  string        `json:"type"`
	Users []domain.User `json:"users"`
}

func NewUsersList(users []domain.User) UsersList {
	if users == nil {
		users = []domain.User{}
	}
	return UsersList{Type: TypeUsersList, Users: users}
}

type FileList struct {
	Type  string        `json:"type"`
	Files []domain.File `json:"files"`
}

func NewFileList(files []domain.File) FileList {
	if files == nil {
		files = []domain.File{}
	}
	return FileList{Type: TypeFileList, Files: files}
}

type UserJoined struct {
	Type string      `json:"type"`
	User domain.User `json:"user"`
}

func NewUserJoined(u domain.User) UserJoined {
	return UserJoined{Type: TypeUserJoined, User: u}
}

type UserLeft struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

func NewUserLeft(id domain.UserID) UserLeft {
	return UserLeft{Type: TypeUserLeft, UserID: id}
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(msg string) Error {
	return Error{Type: TypeError, Message: msg}
}

type ServerShutdown struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewServerShutdown() ServerShutdown {
	return ServerShutdown{Type: TypeServerShutdown, Message: "Server is shutting down"}
}

type Pong struct {
	Type string `json:"type"`
}

func NewPong() Pong { return Pong{Type: TypePong} }

// Encode marshals an outbound envelope into a frame.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
