package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Errors
var (
	ErrInvalidChatType = errors.New("invalid chat type")
	ErrEmptyChatID     = errors.New("chat id is required")
)

// GetChats lists the current user's chats.
func (c *Client) GetChats(ctx context.Context) (*ChatsResponse, error) {
	var resp ChatsResponse
	if err := c.call(ctx, http.MethodGet, "/chats", "/chats", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("get chats: %w", err)
	}
	return &resp, nil
}

// GetMessages fetches one page of a chat's messages. page and limit default
// to DefaultPage and DefaultLimit when <= 0.
func (c *Client) GetMessages(ctx context.Context, chatID string, page, limit int) (*MessagesResponse, error) {
	if chatID == "" {
		return nil, fmt.Errorf("get messages: %w", ErrEmptyChatID)
	}
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var resp MessagesResponse
	if err := c.call(ctx, http.MethodGet, "/chats/{id}/messages", chatPath(chatID, "messages"), query, nil, &resp); err != nil {
		return nil, fmt.Errorf("get messages %s: %w", chatID, err)
	}
	return &resp, nil
}

// GetAllMessages pages through a chat's history until the backend reports no
// more pages or returns a short page.
func (c *Client) GetAllMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var all []Message
	for page := DefaultPage; ; page++ {
		resp, err := c.GetMessages(ctx, chatID, page, limit)
		if err != nil {
			return nil, err
		}

		all = append(all, resp.Messages...)

		if len(resp.Messages) < limit && !resp.Pagination.HasMore {
			break
		}
		if len(resp.Messages) == 0 {
			break
		}
	}

	return all, nil
}

// SendMessage posts a message. An empty msgType means DefaultMessageType.
func (c *Client) SendMessage(ctx context.Context, chatID, content, msgType string) (*MessageResponse, error) {
	if chatID == "" {
		return nil, fmt.Errorf("send message: %w", ErrEmptyChatID)
	}
	if msgType == "" {
		msgType = DefaultMessageType
	}

	payload := struct {
		Content string `json:"content"`
		Type    string `json:"type"`
	}{content, msgType}

	var resp MessageResponse
	if err := c.call(ctx, http.MethodPost, "/chats/{id}/messages", chatPath(chatID, "messages"), nil, payload, &resp); err != nil {
		return nil, fmt.Errorf("send message %s: %w", chatID, err)
	}
	return &resp, nil
}

// CreateChat creates a chat of the given type.
func (c *Client) CreateChat(ctx context.Context, chatType ChatType, params CreateChatParams) (*ChatResponse, error) {
	if !chatType.Valid() {
		return nil, fmt.Errorf("create chat: %w: %q", ErrInvalidChatType, chatType)
	}

	payload, err := params.body(chatType)
	if err != nil {
		return nil, fmt.Errorf("create chat: encode params: %w", err)
	}

	var resp ChatResponse
	if err := c.call(ctx, http.MethodPost, "/chats", "/chats", nil, payload, &resp); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return &resp, nil
}

// SearchUsers finds users matching query.
func (c *Client) SearchUsers(ctx context.Context, query string) (*UsersResponse, error) {
	q := url.Values{}
	q.Set("q", query)

	var resp UsersResponse
	if err := c.call(ctx, http.MethodGet, "/users/search", "/users/search", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return &resp, nil
}

// MarkAsRead marks every message in a chat as read.
func (c *Client) MarkAsRead(ctx context.Context, chatID string) (*StatusResponse, error) {
	if chatID == "" {
		return nil, fmt.Errorf("mark as read: %w", ErrEmptyChatID)
	}

	var resp StatusResponse
	if err := c.call(ctx, http.MethodPost, "/chats/{id}/read", chatPath(chatID, "read"), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("mark as read %s: %w", chatID, err)
	}
	return &resp, nil
}

func chatPath(chatID, suffix string) string {
	return "/chats/" + url.PathEscape(chatID) + "/" + suffix
}
