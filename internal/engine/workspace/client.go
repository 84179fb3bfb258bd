package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notebridge/internal/platform/config"
)

var (
	// ErrUnauthorized means the provider rejected the stored access token.
	// The caller may refresh and retry once.
	ErrUnauthorized = errors.New("workspace rejected access token")

	// ErrNotFound means the referenced resource no longer exists upstream.
	ErrNotFound = errors.New("workspace resource not found")
)

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("workspace api error: %s (%d)", e.Message, e.StatusCode)
}

type Page struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Icon        string `json:"icon,omitempty"`
	ParentType  string `json:"parent_type,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	ParentTitle string `json:"parent_title,omitempty"`
}

// Client is a thin wrapper over the workspace provider's REST API. It holds
// no credentials; every call takes the user's access token.
type Client struct {
	baseURL string
	version string
	client  *http.Client
}

func NewClient(cfg config.OAuthConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		version: cfg.APIVersion,
		client:  &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query  string       `json:"query,omitempty"`
	Filter searchFilter `json:"filter"`
}

type searchFilter struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
	HasMore bool           `json:"has_more"`
}

type searchResult struct {
	Object     string              `json:"object"`
	ID         string              `json:"id"`
	Icon       *pageIcon           `json:"icon"`
	Parent     *pageParent         `json:"parent"`
	Properties map[string]pageProp `json:"properties"`
}

type pageProp struct {
	Type  string     `json:"type"`
	Title []richText `json:"title"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type pageIcon struct {
	Type     string   `json:"type"`
	Emoji    string   `json:"emoji"`
	External *fileRef `json:"external"`
	File     *fileRef `json:"file"`
}

type pageParent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id"`
	DatabaseID string `json:"database_id"`
}

type fileRef struct {
	URL string `json:"url"`
}

// pageTitle pulls the plain text out of whichever property carries the title;
// the property name varies between pages and database rows.
func pageTitle(props map[string]pageProp) string {
	for _, prop := range props {
		if prop.Type != "title" {
			continue
		}
		var sb strings.Builder
		for _, rt := range prop.Title {
			sb.WriteString(rt.PlainText)
		}
		return sb.String()
	}
	return ""
}

func iconValue(icon *pageIcon) string {
	if icon == nil {
		return ""
	}
	switch icon.Type {
	case "emoji":
		return icon.Emoji
	case "external":
		if icon.External != nil {
			return icon.External.URL
		}
	case "file":
		if icon.File != nil {
			return icon.File.URL
		}
	}
	return ""
}

// SearchPages lists pages the token can reach. Parent titles are resolved in
// a second pass over the same result set, since the provider only returns
// parent ids.
func (c *Client) SearchPages(ctx context.Context, token, query string) ([]*Page, bool, error) {
	body := searchRequest{
		Query:  query,
		Filter: searchFilter{Property: "object", Value: "page"},
	}

	var res searchResponse
	if err := c.do(ctx, token, http.MethodPost, "/search", body, &res); err != nil {
		return nil, false, err
	}

	pages := make([]*Page, 0, len(res.Results))
	byID := make(map[string]*Page, len(res.Results))
	for _, r := range res.Results {
		if r.Object != "page" {
			continue
		}
		p := &Page{ID: r.ID, Title: pageTitle(r.Properties), Icon: iconValue(r.Icon)}
		if r.Parent != nil {
			p.ParentType = r.Parent.Type
			switch r.Parent.Type {
			case "page_id":
				p.ParentID = r.Parent.PageID
			case "database_id":
				p.ParentID = r.Parent.DatabaseID
			}
		}
		pages = append(pages, p)
		byID[NormalizeID(p.ID)] = p
	}

	for _, p := range pages {
		if p.ParentID == "" {
			continue
		}
		if parent, ok := byID[NormalizeID(p.ParentID)]; ok {
			p.ParentTitle = parent.Title
		}
	}

	return pages, res.HasMore, nil
}

type createPageRequest struct {
	Parent     map[string]string      `json:"parent"`
	Properties map[string]interface{} `json:"properties"`
	Children   []block                `json:"children,omitempty"`
}

type block struct {
	Object    string     `json:"object"`
	Type      string     `json:"type"`
	Paragraph *paragraph `json:"paragraph,omitempty"`
}

type paragraph struct {
	RichText []textContent `json:"rich_text"`
}

type textContent struct {
	Type string  `json:"type"`
	Text textBody `json:"text"`
}

type textBody struct {
	Content string `json:"content"`
}

// CreatePage writes a new page under parentID with one paragraph block per
// input string. Returns the created page id.
func (c *Client) CreatePage(ctx context.Context, token, parentID, title string, paragraphs []string) (string, error) {
	req := createPageRequest{
		Parent: map[string]string{"page_id": parentID},
		Properties: map[string]interface{}{
			"title": map[string]interface{}{
				"title": []textContent{{Type: "text", Text: textBody{Content: title}}},
			},
		},
	}
	for _, p := range paragraphs {
		req.Children = append(req.Children, block{
			Object:    "block",
			Type:      "paragraph",
			Paragraph: &paragraph{RichText: []textContent{{Type: "text", Text: textBody{Content: p}}}},
		})
	}

	var res struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, token, http.MethodPost, "/pages", req, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if c.version != "" {
		req.Header.Set("Notion-Version", c.version)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// NormalizeID strips dashes so page ids compare reliably; the provider is
// inconsistent about including them.
func NormalizeID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
