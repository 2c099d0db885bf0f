package api

import (
	"encoding/json"
	"time"
)

// ChatType is the kind of a chat.
type ChatType string

const (
	ChatPrivate ChatType = "private"
	ChatGroup   ChatType = "group"
	ChatChannel ChatType = "channel"
)

// Valid reports whether t is one of the backend's chat kinds.
func (t ChatType) Valid() bool {
	switch t {
	case ChatPrivate, ChatGroup, ChatChannel:
		return true
	}
	return false
}

// DefaultMessageType is used by SendMessage when no type is given.
const DefaultMessageType = "text"

// Default paging for GetMessages.
const (
	DefaultPage  = 1
	DefaultLimit = 50
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// ProfileUpdate is the body of PUT /auth/profile. Nil fields are left unchanged.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	Status      *string `json:"status,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// User is a backend account.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	Status      string    `json:"status,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	IsOnline    bool      `json:"isOnline,omitempty"`
	LastSeen    time.Time `json:"lastSeen,omitempty"`
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

// StatusResponse is the generic {success, message} envelope.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ProfileResponse is returned by GET and PUT /auth/profile.
type ProfileResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// Message is one chat message.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Sender    User      `json:"sender"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	ReadBy    []string  `json:"readBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Chat is a conversation.
type Chat struct {
	ID           string    `json:"id"`
	Type         ChatType  `json:"type"`
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Participants []User    `json:"participants,omitempty"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	UnreadCount  int       `json:"unreadCount,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// ChatsResponse is returned by GET /chats.
type ChatsResponse struct {
	Success bool   `json:"success"`
	Chats   []Chat `json:"chats"`
}

// ChatResponse is returned by POST /chats.
type ChatResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Chat    Chat   `json:"chat"`
}

// Pagination describes a page of results.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total,omitempty"`
	HasMore bool `json:"hasMore"`
}

// MessagesResponse is returned by GET /chats/{id}/messages.
type MessagesResponse struct {
	Success    bool       `json:"success"`
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

// MessageResponse is returned by POST /chats/{id}/messages.
type MessageResponse struct {
	Success bool    `json:"success"`
	Message Message `json:"message"`
}

// UsersResponse is returned by GET /users/search.
type UsersResponse struct {
	Success bool   `json:"success"`
	Users   []User `json:"users"`
}

// CreateChatParams are the fields merged with the chat type in POST /chats.
type CreateChatParams struct {
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	Avatar       string   `json:"avatar,omitempty"`
	Participants []string `json:"participants,omitempty"`

	// Extra carries backend fields this client has no struct field for.
	Extra map[string]any `json:"-"`
}

// body flattens the params and the chat type into one JSON object.
func (p CreateChatParams) body(t ChatType) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		out[k] = v
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	out["type"] = string(t)
	return out, nil
}
