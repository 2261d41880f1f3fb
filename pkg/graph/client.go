package graph

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	fiberClient "github.com/gofiber/fiber/v3/client"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"
	maxPageSize    = 50
)

/*
Client calls Microsoft Graph with the signed-in user's delegated token.
*/
type Client struct {
	conn   *fiberClient.Client
	tokens oauth2.TokenSource
}

func NewClient(baseURL string, tokens oauth2.TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		conn:   fiberClient.New().SetBaseURL(baseURL).SetTimeout(30 * time.Second),
		tokens: tokens,
	}
}

type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

func (r *Recipient) String() string {
	if r == nil {
		return ""
	}

	if r.EmailAddress.Name == "" {
		return r.EmailAddress.Address
	}

	if r.EmailAddress.Address == "" {
		return r.EmailAddress.Name
	}

	return r.EmailAddress.Name + " <" + r.EmailAddress.Address + ">"
}

type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	JobTitle          string `json:"jobTitle"`
	OfficeLocation    string `json:"officeLocation"`
}

type Message struct {
	ID               string     `json:"id"`
	Subject          string     `json:"subject"`
	From             *Recipient `json:"from,omitempty"`
	ReceivedDateTime string     `json:"receivedDateTime"`
	BodyPreview      string     `json:"bodyPreview"`
	IsRead           bool       `json:"isRead"`
	WebLink          string     `json:"webLink"`
}

type DateTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type Location struct {
	DisplayName string `json:"displayName"`
}

type Event struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	Start       DateTimeZone `json:"start"`
	End         DateTimeZone `json:"end"`
	Location    Location     `json:"location"`
	Organizer   *Recipient   `json:"organizer,omitempty"`
	IsAllDay    bool         `json:"isAllDay"`
	BodyPreview string       `json:"bodyPreview"`
	WebLink     string       `json:"webLink"`
}

type DriveItem struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	WebURL               string `json:"webUrl"`
	Size                 int64  `json:"size"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
	File                 *struct {
		MimeType string `json:"mimeType"`
	} `json:"file,omitempty"`
	Folder *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder,omitempty"`
}

type collection[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// Me returns the signed-in user's profile.
func (client *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := client.get(ctx, "/me", nil, &user)
	return user, err
}

/*
MessageQuery narrows a mailbox listing. An empty folder lists the whole
mailbox.
*/
type MessageQuery struct {
	Folder     string
	Top        int
	UnreadOnly bool
}

// ListMessages returns the newest messages first.
func (client *Client) ListMessages(ctx context.Context, q MessageQuery) ([]Message, error) {
	path := "/me/messages"

	if q.Folder != "" {
		path = "/me/mailFolders/" + url.PathEscape(q.Folder) + "/messages"
	}

	params := map[string]string{
		"$select":  "id,subject,from,receivedDateTime,bodyPreview,isRead,webLink",
		"$orderby": "receivedDateTime desc",
	}

	if q.UnreadOnly {
		params["$filter"] = "isRead eq false"
	}

	return list[Message](ctx, client, path, params, q.Top)
}

/*
ListEvents expands the calendar between start and end, recurring meetings
included, ordered by start time.
*/
func (client *Client) ListEvents(ctx context.Context, start, end time.Time, top int) ([]Event, error) {
	params := map[string]string{
		"startDateTime": start.UTC().Format(time.RFC3339),
		"endDateTime":   end.UTC().Format(time.RFC3339),
		"$select":       "id,subject,start,end,location,organizer,isAllDay,bodyPreview,webLink",
		"$orderby":      "start/dateTime",
	}

	return list[Event](ctx, client, "/me/calendarView", params, top)
}

// SearchFiles runs a OneDrive search across the user's drive.
func (client *Client) SearchFiles(ctx context.Context, query string, top int) ([]DriveItem, error) {
	escaped := url.PathEscape(strings.ReplaceAll(query, "'", "''"))
	return list[DriveItem](ctx, client, "/me/drive/root/search(q='"+escaped+"')", map[string]string{}, top)
}

/*
list follows @odata.nextLink until top items are collected or the collection
ends. The next link is absolute and already carries the query.
*/
func list[T any](
	ctx context.Context, client *Client, path string, params map[string]string, top int,
) ([]T, error) {
	if top <= 0 {
		top = 10
	}

	params["$top"] = strconv.Itoa(min(top, maxPageSize))

	var (
		out  []T
		seen = map[string]bool{}
	)

	for {
		var page collection[T]

		if err := client.get(ctx, path, params, &page); err != nil {
			return nil, err
		}

		out = append(out, page.Value...)

		if len(out) >= top {
			return out[:top], nil
		}

		if page.NextLink == "" || seen[page.NextLink] {
			return out, nil
		}

		seen[page.NextLink] = true
		path, params = page.NextLink, nil
	}
}

func (client *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	if client.tokens == nil {
		return &errors.MissingCredentialError{
			Service: "Microsoft Graph",
			Keys:    []string{"GRAPH_CLIENT_ID", "a cached token from `mcp-wrappers auth graph`"},
		}
	}

	tok, err := client.tokens.Token()

	if err != nil {
		return &errors.UpstreamError{Service: "graph", Op: "token", Err: err}
	}

	log.Debug("graph request", "path", path)

	resp, err := client.conn.Get(path, fiberClient.Config{
		Ctx: ctx,
		Header: map[string]string{
			"Authorization": "Bearer " + tok.AccessToken,
			"Accept":        "application/json",
		},
		Param: params,
	})

	if err != nil {
		return &errors.UpstreamError{Service: "graph", Op: "GET " + path, Err: err}
	}

	defer resp.Close()

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return &errors.UpstreamError{
			Service: "graph",
			Op:      "GET " + path,
			Status:  resp.StatusCode(),
			Body:    string(resp.Body()),
		}
	}

	if err = resp.JSON(out); err != nil {
		return &errors.UpstreamError{Service: "graph", Op: "decode " + path, Err: err}
	}

	return nil
}
