// Package fedora implements the repository capabilities against the Fedora 3
// REST API used by DOMS.
package fedora

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"editionlinks/internal/domain"
)

// Config holds connection settings for a Fedora repository
type Config struct {
	BaseURL    string
	Username   string
	Password   string
	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Client is a Fedora 3 REST client
type Client struct {
	baseURL    string
	username   string
	password   string
	retries    int
	retryDelay time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Fedora client
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// statusError is a non-2xx response
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("fedora returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("fedora returned %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// GetDocument returns the content of a datastream
func (c *Client) GetDocument(ctx context.Context, pid, datastream string) ([]byte, error) {
	path := "/objects/" + url.PathEscape(pid) + "/datastreams/" + url.PathEscape(datastream) + "/content"
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &domain.TransportError{Op: "get datastream " + datastream, PID: pid, Err: err}
	}
	return body, nil
}

// ListNamedRelations lists relations from pid with the given predicate.
// Fedora cannot filter on object, so a non-empty object is filtered here.
func (c *Client) ListNamedRelations(ctx context.Context, pid, predicate, object string) ([]domain.Relation, error) {
	params := url.Values{}
	params.Set("subject", domain.ToURI(pid))
	params.Set("predicate", predicate)
	params.Set("format", "n-triples")

	body, err := c.do(ctx, http.MethodGet, "/objects/"+url.PathEscape(pid)+"/relationships", params)
	if err != nil {
		return nil, &domain.TransportError{Op: "list relations", PID: pid, Err: err}
	}

	triples, err := parseNTriples(body)
	if err != nil {
		return nil, &domain.TransportError{Op: "list relations", PID: pid, Err: err}
	}

	relations := make([]domain.Relation, 0, len(triples))
	for _, rel := range triples {
		if rel.Predicate != predicate {
			continue
		}
		if object != "" && rel.Object != object {
			continue
		}
		relations = append(relations, rel)
	}
	return relations, nil
}

// AddRelation adds a relation to pid. The comment is not stored by Fedora's
// relationship API and is only logged.
func (c *Client) AddRelation(ctx context.Context, pid, subject, predicate, object string, literal bool, comment string) error {
	return c.writeRelation(ctx, http.MethodPost, "/relationships/new", "add relation", pid, subject, predicate, object, literal, comment)
}

// DeleteRelation removes a relation from pid
func (c *Client) DeleteRelation(ctx context.Context, pid, subject, predicate, object string, literal bool, comment string) error {
	return c.writeRelation(ctx, http.MethodDelete, "/relationships", "delete relation", pid, subject, predicate, object, literal, comment)
}

func (c *Client) writeRelation(ctx context.Context, method, suffix, op, pid, subject, predicate, object string, literal bool, comment string) error {
	params := url.Values{}
	params.Set("subject", subject)
	params.Set("predicate", predicate)
	params.Set("object", object)
	params.Set("isLiteral", strconv.FormatBool(literal))

	c.logger.Debug("fedora relation write", "op", op, "pid", pid, "object", object, "comment", comment)

	if _, err := c.do(ctx, method, "/objects/"+url.PathEscape(pid)+suffix, params); err != nil {
		if isPublishedRejection(err) {
			err = fmt.Errorf("%w: %v", domain.ErrPublished, err)
		}
		return &domain.TransportError{Op: op, PID: pid, Err: err}
	}
	return nil
}

// SetObjectState changes the object state (A, I) of pid
func (c *Client) SetObjectState(ctx context.Context, pid string, state domain.State, comment string) error {
	params := url.Values{}
	params.Set("state", string(state))
	params.Set("logMessage", comment)

	if _, err := c.do(ctx, http.MethodPut, "/objects/"+url.PathEscape(pid), params); err != nil {
		return &domain.TransportError{Op: "set state " + string(state), PID: pid, Err: err}
	}
	return nil
}

// isPublishedRejection reports whether a relation write was refused because
// the object is published. DOMS answers such writes with 401/403.
func isPublishedRejection(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
}

// do performs a request, retrying connection failures and 5xx responses
func (c *Client) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			c.logger.Debug("fedora request failed", "method", method, "path", path, "attempt", attempt, "error", err)
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 300 {
			se := &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(truncate(string(data), 200))}
			if resp.StatusCode >= 500 {
				c.logger.Debug("fedora server error", "method", method, "path", path, "attempt", attempt, "status", resp.StatusCode)
				return se
			}
			return backoff.Permanent(se)
		}

		body = data
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(max(c.retries, 0))),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// parseNTriples reads relations from an N-Triples document. Literal objects
// keep their lexical value without quotes.
func parseNTriples(data []byte) ([]domain.Relation, error) {
	var relations []domain.Relation

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		subject, rest, ok := cutIRI(line)
		if !ok {
			return nil, fmt.Errorf("line %d: invalid subject", lineNo)
		}
		predicate, rest, ok := cutIRI(rest)
		if !ok {
			return nil, fmt.Errorf("line %d: invalid predicate", lineNo)
		}

		rest = strings.TrimSuffix(strings.TrimSpace(rest), ".")
		rest = strings.TrimSpace(rest)

		var object string
		if strings.HasPrefix(rest, "<") {
			object, _, ok = cutIRI(rest)
		} else {
			object, ok = literalValue(rest)
		}
		if !ok {
			return nil, fmt.Errorf("line %d: invalid object", lineNo)
		}

		relations = append(relations, domain.Relation{Subject: subject, Predicate: predicate, Object: object})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return relations, nil
}

func cutIRI(s string) (string, string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return "", "", false
	}
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return "", "", false
	}
	return s[1:end], s[end+1:], true
}

func literalValue(s string) (string, bool) {
	if !strings.HasPrefix(s, `"`) {
		return "", false
	}
	end := strings.LastIndexByte(s, '"')
	if end <= 0 {
		return "", false
	}
	v, err := strconv.Unquote(s[:end+1])
	if err != nil {
		return s[1:end], true
	}
	return v, true
}
