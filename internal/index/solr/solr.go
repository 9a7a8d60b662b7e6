// Package solr implements index.Searcher against a Solr select handler.
package solr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"editionlinks/internal/index"
)

// Client queries a Solr core over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the Solr core at baseURL (e.g. http://host:8983/solr/sboi)
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type selectResponse struct {
	Response struct {
		NumFound int         `json:"numFound"`
		Start    int         `json:"start"`
		Docs     []index.Row `json:"docs"`
	} `json:"response"`
	Error *struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error,omitempty"`
}

// Search runs q against the select handler
func (c *Client) Search(ctx context.Context, q index.Query) ([]index.Row, error) {
	params := url.Values{}
	params.Set("q", q.Q)
	params.Set("start", strconv.Itoa(q.Start))
	params.Set("rows", strconv.Itoa(q.Rows))
	params.Set("facet", strconv.FormatBool(q.Facet))
	params.Set("wt", "json")
	if len(q.Fields) > 0 {
		params.Set("fl", strings.Join(q.Fields, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/select?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query solr: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read solr response: %w", err)
	}

	var result selectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("solr returned %s", resp.Status)
		}
		return nil, fmt.Errorf("decode solr response: %w", err)
	}

	if result.Error != nil {
		return nil, fmt.Errorf("solr error %d: %s", result.Error.Code, result.Error.Msg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("solr returned %s", resp.Status)
	}

	return result.Response.Docs, nil
}
