package serpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	fiberClient "github.com/gofiber/fiber/v3/client"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
)

const (
	DefaultBaseURL = "https://serpapi.com"
	DefaultEngine  = "google"
	DefaultNum     = 10
	MaxNum         = 100
)

type Client struct {
	apiKey string
	conn   *fiberClient.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey: apiKey,
		conn:   fiberClient.New().SetBaseURL(baseURL).SetTimeout(30 * time.Second),
	}
}

// Query is one search request.
type Query struct {
	Q        string
	Engine   string
	Num      int
	Location string
}

type AnswerBox struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Answer  string `json:"answer"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Text is the most useful single value of the answer box.
func (box *AnswerBox) Text() string {
	if box == nil {
		return ""
	}

	for _, v := range []string{box.Answer, box.Snippet, box.Title} {
		if v != "" {
			return v
		}
	}

	return ""
}

type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Source   string `json:"source"`
}

type Metadata struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Result struct {
	Metadata       Metadata        `json:"search_metadata"`
	AnswerBox      *AnswerBox      `json:"answer_box,omitempty"`
	OrganicResults []OrganicResult `json:"organic_results"`
	Error          string          `json:"error,omitempty"`
}

/*
Search runs a query against /search.json. SerpAPI reports some failures with a
2xx status and an "error" field; those come back as UpstreamError too.
*/
func (client *Client) Search(ctx context.Context, q Query) (*Result, error) {
	if client.apiKey == "" {
		return nil, &errors.MissingCredentialError{
			Service: "SerpAPI",
			Keys:    []string{"SERPAPI_API_KEY", "serpapi.apiKey"},
		}
	}

	if q.Engine == "" {
		q.Engine = DefaultEngine
	}

	if q.Num <= 0 {
		q.Num = DefaultNum
	}

	params := map[string]string{
		"q":       q.Q,
		"engine":  q.Engine,
		"num":     strconv.Itoa(min(q.Num, MaxNum)),
		"api_key": client.apiKey,
		"output":  "json",
	}

	if q.Location != "" {
		params["location"] = q.Location
	}

	log.Debug("serpapi search", "engine", q.Engine, "query", q.Q)

	resp, err := client.conn.Get("/search.json", fiberClient.Config{
		Ctx:    ctx,
		Header: map[string]string{"Accept": "application/json"},
		Param:  params,
	})

	if err != nil {
		return nil, &errors.UpstreamError{Service: "serpapi", Op: "search", Err: err}
	}

	defer resp.Close()

	var result Result

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		upstream := &errors.UpstreamError{
			Service: "serpapi",
			Op:      "search",
			Status:  resp.StatusCode(),
			Body:    string(resp.Body()),
		}

		if resp.JSON(&result) == nil && result.Error != "" {
			upstream.Body = result.Error
		}

		return nil, upstream
	}

	if err := resp.JSON(&result); err != nil {
		return nil, &errors.UpstreamError{Service: "serpapi", Op: "decode search", Err: err}
	}

	if result.Error != "" {
		return nil, &errors.UpstreamError{
			Service: "serpapi", Op: "search", Status: resp.StatusCode(), Body: result.Error,
		}
	}

	if len(result.OrganicResults) > q.Num {
		result.OrganicResults = result.OrganicResults[:q.Num]
	}

	return &result, nil
}
