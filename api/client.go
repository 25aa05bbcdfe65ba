// Package api talks to the collaborator HTTP service: accounts, chat
// listing and media upload. The relay never calls it.
package api

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/mimetypes"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 20 * time.Second

var _ contract.IChatAPI = (*Client)(nil)

type Client struct {
	log  *slog.Logger
	base string
	http *resty.Client
}

func New(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := strings.TrimSuffix(baseURL, "/")
	return &Client{
		log:  log,
		base: base,
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Code        string `json:"code,omitempty"`
}

// Login returns the session of a verified account. An unverified account
// yields ErrVerificationRequired.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Session, error) {
	var session domain.Session
	resp, err := c.request(ctx).
		SetBody(credentials{Email: email, Password: password}).
		SetResult(&session).
		Post("/login")
	if err != nil {
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}
	if resp.StatusCode() == http.StatusForbidden {
		return domain.Session{}, errors.ErrVerificationRequired
	}
	if err := check(resp); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (c *Client) Register(ctx context.Context, email, password, displayName string) error {
	return c.post(ctx, "/register", credentials{Email: email, Password: password, DisplayName: displayName})
}

// RequestVerify asks the service to send a new verification code.
func (c *Client) RequestVerify(ctx context.Context, email string) error {
	return c.post(ctx, "/request_verify", credentials{Email: email})
}

func (c *Client) Verify(ctx context.Context, email, code string) error {
	return c.post(ctx, "/verify", credentials{Email: email, Code: code})
}

// MyChats lists the chats of the session owner, in the service's order.
func (c *Client) MyChats(ctx context.Context, token string) ([]domain.ChatSummary, error) {
	var chats []domain.ChatSummary
	resp, err := c.request(ctx).
		SetQueryParam("token", token).
		SetResult(&chats).
		Get("/my_chats")
	if err != nil {
		return nil, fmt.Errorf("my chats: %w", err)
	}
	if err := check(resp); err != nil {
		return nil, err
	}
	return chats, nil
}

// CreateChat sends the token and a JSON payload as form fields.
func (c *Client) CreateChat(ctx context.Context, token string, chat domain.NewChat) error {
	if chat.MemberIDs == nil {
		chat.MemberIDs = []int64{}
	}
	payload, err := json.Marshal(chat)
	if err != nil {
		return err
	}
	resp, err := c.request(ctx).
		SetFormData(map[string]string{"token": token, "payload": string(payload)}).
		Post("/chats")
	if err != nil {
		return fmt.Errorf("create chat: %w", err)
	}
	return check(resp)
}

// Upload sends a local file and returns where it can be fetched. A relative
// URL is resolved against the API base. Type is empty when the server did not
// say.
func (c *Client) Upload(ctx context.Context, path string) (domain.UploadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.UploadResult{}, err
	}
	defer file.Close()

	var result domain.UploadResult
	resp, err := c.request(ctx).
		SetMultipartField("file", filepath.Base(path), string(mimetypes.OctetStream), file).
		SetResult(&result).
		Post("/upload")
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("upload: %w", err)
	}
	if err := check(resp); err != nil {
		return domain.UploadResult{}, err
	}
	result.URL = c.absolute(result.URL)
	c.log.Debug("File uploaded", "path", path, "url", result.URL, "type", string(result.Type))
	return result, nil
}

func (c *Client) absolute(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	return c.base + "/" + strings.TrimPrefix(ref, "/")
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	resp, err := c.request(ctx).SetBody(body).Post(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return check(resp)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).ForceContentType("application/json")
}

func check(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	return &errors.HTTPError{
		Method: resp.Request.Method,
		Path:   resp.Request.URL,
		Status: resp.StatusCode(),
		Body:   strings.TrimSpace(resp.String()),
	}
}
