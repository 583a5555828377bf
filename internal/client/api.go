package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"codescout/internal/agent"
	"codescout/internal/domain/models/chat"
)

// APIClient talks to the codescout server's REST and streaming endpoints.
// It implements both Persistence (for the store's durable sync) and
// StreamOpener (for the runner's event stream).
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a client for the server at baseURL authenticating
// with the given bearer token. The http.Client must not carry an overall
// timeout: streams stay open for the duration of a run.
func NewAPIClient(baseURL, token string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &APIClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

// CreateConversation persists a freshly allocated conversation.
func (c *APIClient) CreateConversation(ctx context.Context, conv *chat.Conversation) error {
	body := map[string]string{
		"id":      conv.ID,
		"repo_id": conv.RepoID,
		"title":   conv.Title,
	}
	return c.send(ctx, http.MethodPost, "/api/conversations", body, nil)
}

// AppendTurn persists one turn of its conversation.
func (c *APIClient) AppendTurn(ctx context.Context, turn *chat.Turn) error {
	path := fmt.Sprintf("/api/conversations/%s/turns", turn.ConversationID)
	return c.send(ctx, http.MethodPost, path, turn, nil)
}

// PatchTurn persists a partial turn update.
func (c *APIClient) PatchTurn(ctx context.Context, turnID string, patch chat.TurnPatch) error {
	return c.send(ctx, http.MethodPatch, "/api/turns/"+turnID, patch, nil)
}

// UpdateConversationTitle renames a conversation.
func (c *APIClient) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	body := map[string]string{"title": title}
	return c.send(ctx, http.MethodPatch, "/api/conversations/"+conversationID, body, nil)
}

// DeleteConversation soft-deletes a conversation and its turns.
func (c *APIClient) DeleteConversation(ctx context.Context, conversationID string) error {
	return c.send(ctx, http.MethodDelete, "/api/conversations/"+conversationID, nil, nil)
}

// ConversationPage is one page of the caller's conversations.
type ConversationPage struct {
	Items   []chat.Conversation `json:"items"`
	HasMore bool                `json:"has_more"`
}

// ListConversations fetches one page of the caller's conversations, most
// recently updated first.
func (c *APIClient) ListConversations(ctx context.Context, limit, offset int) (*ConversationPage, error) {
	path := fmt.Sprintf("/api/conversations?limit=%d&offset=%d", limit, offset)
	var page ConversationPage
	if err := c.send(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetConversation fetches one conversation's metadata.
func (c *APIClient) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	var conv chat.Conversation
	if err := c.send(ctx, http.MethodGet, "/api/conversations/"+conversationID, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListTurns fetches a conversation's full transcript ordered by creation time.
func (c *APIClient) ListTurns(ctx context.Context, conversationID string) ([]chat.Turn, error) {
	var turns []chat.Turn
	path := fmt.Sprintf("/api/conversations/%s/turns", conversationID)
	if err := c.send(ctx, http.MethodGet, path, nil, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

// OpenStream starts one agent run and returns the raw event stream. A
// non-2xx status is a hard failure; the body is not parsed for an error
// payload.
func (c *APIClient) OpenStream(ctx context.Context, conversationID string, req *agent.Request) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode stream request: %w", err)
	}

	url := fmt.Sprintf("%s/api/conversations/%s/stream", c.baseURL, conversationID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("open stream: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// send issues one JSON round-trip. A nil out discards the response body;
// a non-2xx status is returned as an error.
func (c *APIClient) send(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *APIClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
