package miro

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	fiberClient "github.com/gofiber/fiber/v3/client"
	"github.com/theapemachine/mcp-wrappers/pkg/auth"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.miro.com/v2"

	// Page size bounds accepted by the items and connectors endpoints.
	MinPageSize = 10
	MaxPageSize = 50
)

/*
Client talks to the Miro REST API v2 on behalf of a single access token.
*/
type Client struct {
	baseURL string
	token   string
	conn    *fiberClient.Client
	limiter *auth.RateLimiter
}

type ClientOption func(*Client)

// WithTimeout overrides the per-request timeout (default 30s).
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.conn.SetTimeout(d)
	}
}

/*
WithRateLimit spaces requests to at most perMinute per minute. Zero disables it.
*/
func WithRateLimit(perMinute int64) ClientOption {
	return func(client *Client) {
		client.limiter = auth.NewRateLimiter(perMinute, time.Minute)
	}
}

/*
NewClient creates a Miro client. An empty baseURL selects the public API.
*/
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := &Client{
		baseURL: baseURL,
		token:   token,
		conn:    fiberClient.New().SetBaseURL(baseURL).SetTimeout(30 * time.Second),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Configured reports whether the client has a token to call the API with.
func (client *Client) Configured() bool {
	return client.token != ""
}

/*
ItemQuery narrows an item listing. Limit caps the total number of items
returned across all pages; zero means no cap.
*/
type ItemQuery struct {
	ParentID string
	Type     string
	Limit    int
}

type page struct {
	Data   []json.RawMessage `json:"data"`
	Cursor string            `json:"cursor"`
	Total  int               `json:"total"`
	Size   int               `json:"size"`
}

/*
ListBoards returns the boards visible to the token, optionally filtered by a
search query.
*/
func (client *Client) ListBoards(ctx context.Context, query string, limit int) ([]Board, error) {
	params := map[string]string{"limit": strconv.Itoa(clampPage(limit))}

	if query != "" {
		params["query"] = query
	}

	var out struct {
		Data  []Board `json:"data"`
		Total int     `json:"total"`
	}

	if err := client.get(ctx, "/boards", params, &out); err != nil {
		return nil, err
	}

	if limit > 0 && len(out.Data) > limit {
		out.Data = out.Data[:limit]
	}

	return out.Data, nil
}

// GetBoard fetches board metadata.
func (client *Client) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var board Board
	err := client.get(ctx, "/boards/"+url.PathEscape(boardID), nil, &board)
	return board, err
}

// GetItem fetches a single item, typically a frame, by id.
func (client *Client) GetItem(ctx context.Context, boardID, itemID string) (BoardItem, error) {
	var item BoardItem

	err := client.get(
		ctx, "/boards/"+url.PathEscape(boardID)+"/items/"+url.PathEscape(itemID), nil, &item,
	)

	return item, err
}

/*
ListItems walks the cursor-paginated item listing until the API has no more
pages or the query limit is reached. Pages are requested one after another.
*/
func (client *Client) ListItems(ctx context.Context, boardID string, q ItemQuery) ([]BoardItem, error) {
	params := map[string]string{}

	if q.ParentID != "" {
		params["parent_item_id"] = q.ParentID
	}

	if q.Type != "" {
		params["type"] = q.Type
	}

	var (
		items []BoardItem
		path  = "/boards/" + url.PathEscape(boardID) + "/items"
	)

	err := client.paginate(ctx, path, params, q.Limit, func(raw []json.RawMessage) int {
		items = append(items, decodeItems(raw)...)
		return len(items)
	})

	if err != nil {
		return nil, err
	}

	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}

	return items, nil
}

/*
ListConnectors returns at most max connectors of the board (all of them when
max is zero).
*/
func (client *Client) ListConnectors(ctx context.Context, boardID string, max int) ([]Connector, error) {
	var (
		connectors []Connector
		path       = "/boards/" + url.PathEscape(boardID) + "/connectors"
	)

	err := client.paginate(ctx, path, map[string]string{}, max, func(raw []json.RawMessage) int {
		connectors = append(connectors, decodeConnectors(raw)...)
		return len(connectors)
	})

	if err != nil {
		return nil, err
	}

	if max > 0 && len(connectors) > max {
		connectors = connectors[:max]
	}

	return connectors, nil
}

/*
paginate requests pages until the cursor runs out, the same cursor comes back
twice, or collect reports that limit entries have been gathered.
*/
func (client *Client) paginate(
	ctx context.Context,
	path string,
	params map[string]string,
	limit int,
	collect func([]json.RawMessage) int,
) error {
	seen := map[string]bool{}

	for {
		size := MaxPageSize

		if limit > 0 {
			size = clampPage(limit)
		}

		params["limit"] = strconv.Itoa(size)

		var p page

		if err := client.get(ctx, path, params, &p); err != nil {
			return err
		}

		total := collect(p.Data)

		if limit > 0 && total >= limit {
			return nil
		}

		if p.Cursor == "" || seen[p.Cursor] {
			return nil
		}

		seen[p.Cursor] = true
		params["cursor"] = p.Cursor
	}
}

func (client *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	if !client.Configured() {
		return &errors.MissingCredentialError{Service: "Miro", Keys: []string{"MIRO_TOKEN", "miro.token"}}
	}

	if err := client.limiter.Wait(ctx); err != nil {
		return err
	}

	log.Debug("miro request", "path", path, "params", params)

	resp, err := client.conn.Get(path, fiberClient.Config{
		Ctx: ctx,
		Header: map[string]string{
			"Authorization": "Bearer " + client.token,
			"Accept":        "application/json",
		},
		Param: params,
	})

	if err != nil {
		return &errors.UpstreamError{Service: "miro", Op: "GET " + path, Err: err}
	}

	defer resp.Close()

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return &errors.UpstreamError{
			Service: "miro",
			Op:      "GET " + path,
			Status:  resp.StatusCode(),
			Body:    string(resp.Body()),
		}
	}

	if err = resp.JSON(out); err != nil {
		return &errors.UpstreamError{Service: "miro", Op: "decode " + path, Err: err}
	}

	return nil
}

func clampPage(n int) int {
	switch {
	case n <= 0 || n > MaxPageSize:
		return MaxPageSize
	case n < MinPageSize:
		return MinPageSize
	}

	return n
}
