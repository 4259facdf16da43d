package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/netx"
)

// APIClient implements Client over a Transport.
type APIClient struct {
	t Transport
}

var _ Client = (*APIClient)(nil)

// NewAPIClient returns a Client that sends every request through t.
func NewAPIClient(t Transport) *APIClient {
	return &APIClient{t: t}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is {token, ...userInfo}.
type loginResponse struct {
	Token string `json:"token"`
	models.UserInfo
}

func notePath(id string) string { return "/notes/" + url.PathEscape(id) }
func filePath(id string) string { return "/files/" + url.PathEscape(id) }

func (c *APIClient) send(ctx context.Context, req *Request) (*Response, error) {
	return c.t.Do(ctx, req)
}

func (c *APIClient) sendJSON(ctx context.Context, method, path string, body any, skipAuth bool) (*Response, error) {
	req, err := NewJSONRequest(method, path, body)
	if err != nil {
		return nil, err
	}
	req.SkipAuth = skipAuth
	return c.send(ctx, req)
}

// Login posts credentials without authorization. Any non-2xx is an AuthError.
func (c *APIClient) Login(ctx context.Context, username, password string) (models.Session, error) {
	resp, err := c.sendJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Username: username, Password: password}, true)
	if err != nil {
		return models.Session{}, err
	}
	if !resp.OK() {
		return models.Session{}, &common.AuthError{Status: resp.StatusCode, Message: netx.ErrorMessage(resp.Body)}
	}

	var lr loginResponse
	if err := resp.DecodeJSON(&lr); err != nil {
		return models.Session{}, &common.TransportError{Op: "POST /auth/login", Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	if lr.Token == "" {
		return models.Session{}, &common.AuthError{Status: resp.StatusCode, Message: "no token in login response"}
	}
	if lr.Username == "" {
		lr.Username = username
	}

	user := lr.UserInfo
	return models.Session{Token: lr.Token, User: &user}, nil
}

// Register posts a new account without authorization. A 4xx is a
// ValidationError carrying the backend message verbatim.
func (c *APIClient) Register(ctx context.Context, username, email, password string) error {
	resp, err := c.sendJSON(ctx, http.MethodPost, "/auth/register", registerRequest{Username: username, Email: email, Password: password}, true)
	if err != nil {
		return err
	}
	if resp.OK() {
		return nil
	}

	msg := netx.ErrorMessage(resp.Body)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		if msg == "" {
			msg = fmt.Sprintf("registration rejected (status %d)", resp.StatusCode)
		}
		return &common.ValidationError{Reason: msg}
	}
	return &common.TransportError{Op: "POST /auth/register", Status: resp.StatusCode, Message: msg}
}

func (c *APIClient) ListNotes(ctx context.Context) ([]models.Note, error) {
	resp, err := c.send(ctx, &Request{Method: http.MethodGet, Path: "/notes"})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, mapStatus("GET /notes", resp, "", "")
	}

	var notes []models.Note
	if err := resp.DecodeJSON(&notes); err != nil {
		return nil, &common.TransportError{Op: "GET /notes", Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return notes, nil
}

func (c *APIClient) CreateNote(ctx context.Context, in models.NoteInput) (models.Note, error) {
	resp, err := c.sendJSON(ctx, http.MethodPost, "/notes", in, false)
	if err != nil {
		return models.Note{}, err
	}
	return decodeNote("POST /notes", resp, "")
}

func (c *APIClient) UpdateNote(ctx context.Context, id string, in models.NoteInput) (models.Note, error) {
	path := notePath(id)
	resp, err := c.sendJSON(ctx, http.MethodPut, path, in, false)
	if err != nil {
		return models.Note{}, err
	}
	return decodeNote("PUT "+path, resp, id)
}

func (c *APIClient) DeleteNote(ctx context.Context, id string) error {
	req := &Request{Method: http.MethodDelete, Path: notePath(id)}
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return mapStatus(req.Op(), resp, "note", id)
	}
	return nil
}

func (c *APIClient) UploadAttachments(ctx context.Context, noteID string, files []models.PendingFile) ([]models.Attachment, error) {
	parts := make([]netx.FilePart, 0, len(files))
	for _, f := range files {
		parts = append(parts, netx.FilePart{Name: f.Name, ContentType: f.Type, Data: f.Data})
	}
	body, ct, err := netx.EncodeMultipart(common.UploadFieldName, parts)
	if err != nil {
		return nil, err
	}

	req := &Request{Method: http.MethodPost, Path: "/files/upload/" + url.PathEscape(noteID), Body: body, ContentType: ct}
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, mapStatus(req.Op(), resp, "note", noteID)
	}

	return decodeUploaded(resp.Body), nil
}

// decodeUploaded accepts an attachment array, a note carrying its
// attachments, or anything else (a bare status) which yields nil.
func decodeUploaded(body []byte) []models.Attachment {
	var list []models.Attachment
	if err := json.Unmarshal(body, &list); err == nil && list != nil {
		return list
	}
	var n models.Note
	if err := json.Unmarshal(body, &n); err == nil && len(n.Attachments) > 0 {
		return n.Attachments
	}
	return nil
}

func (c *APIClient) GetAttachment(ctx context.Context, id string) (models.Blob, error) {
	req := &Request{Method: http.MethodGet, Path: filePath(id)}
	resp, err := c.send(ctx, req)
	if err != nil {
		return models.Blob{}, err
	}
	if !resp.OK() {
		return models.Blob{}, mapStatus(req.Op(), resp, "attachment", id)
	}
	return models.Blob{Data: resp.Body, ContentType: resp.ContentType()}, nil
}

func (c *APIClient) DeleteAttachment(ctx context.Context, id string) error {
	req := &Request{Method: http.MethodDelete, Path: filePath(id)}
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return mapStatus(req.Op(), resp, "attachment", id)
	}
	return nil
}

func decodeNote(op string, resp *Response, id string) (models.Note, error) {
	if !resp.OK() {
		return models.Note{}, mapStatus(op, resp, "note", id)
	}
	var n models.Note
	if err := resp.DecodeJSON(&n); err != nil {
		return models.Note{}, &common.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	if n.ID == "" {
		return models.Note{}, &common.TransportError{Op: op, Status: resp.StatusCode, Message: "response note has no id"}
	}
	return n, nil
}

// mapStatus converts a non-2xx response into the error taxonomy. A 404 is a
// NotFoundError only when the request addressed a resource by id.
func mapStatus(op string, resp *Response, resource, id string) error {
	msg := netx.ErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound && id != "":
		return &common.NotFoundError{Resource: resource, ID: id}
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &common.AuthError{Status: resp.StatusCode, Message: msg}
	default:
		return &common.TransportError{Op: op, Status: resp.StatusCode, Message: msg}
	}
}
