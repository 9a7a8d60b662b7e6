package fedora

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"editionlinks/internal/domain"
)

const (
	editionPID = "uuid:0c1969ca-94be-4ebb-abab-0bd8130e59d7"
	titlePID   = "uuid:38deefa7-381f-4abf-a6c1-a3531b54f997"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	User   string
}

// fakeFedora records requests and answers from a queue of handlers
type fakeFedora struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(n int, r *http.Request) (int, string)
}

func (f *fakeFedora) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	user, _, _ := r.BasicAuth()
	query := map[string]string{}
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: query, User: user})
	n := len(f.requests)
	f.mu.Unlock()

	status, body := f.respond(n, r)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestClient(t *testing.T, respond func(n int, r *http.Request) (int, string)) (*Client, *fakeFedora) {
	t.Helper()
	fake := &fakeFedora{respond: respond}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client := New(Config{
		BaseURL:    server.URL + "/fedora/",
		Username:   "fedoraAdmin",
		Password:   "secret",
		Retries:    2,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	}, nil)
	return client, fake
}

func TestGetDocument(t *testing.T) {
	client, fake := newTestClient(t, func(n int, r *http.Request) (int, string) {
		return http.StatusOK, "<mods/>"
	})

	doc, err := client.GetDocument(context.Background(), editionPID, domain.EditionDatastream)
	require.NoError(t, err)
	assert.Equal(t, "<mods/>", string(doc))

	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodGet, fake.requests[0].Method)
	assert.Equal(t, "/fedora/objects/"+editionPID+"/datastreams/EDITION/content", fake.requests[0].Path)
	assert.Equal(t, "fedoraAdmin", fake.requests[0].User)
}

func TestListNamedRelations(t *testing.T) {
	triples := "<info:fedora/" + editionPID + "> <" + domain.PredicateIsPartOfNewspaper + "> <info:fedora/" + titlePID + "> .\n" +
		"\n" +
		"<info:fedora/" + editionPID + "> <" + domain.PredicateIsPartOfNewspaper + "> <info:fedora/uuid:other> .\n" +
		"<info:fedora/" + editionPID + "> <info:fedora/fedora-system:def/model#hasModel> <info:fedora/doms:ContentModel_Edition> .\n"

	client, fake := newTestClient(t, func(n int, r *http.Request) (int, string) {
		return http.StatusOK, triples
	})

	t.Run("lists relations with the predicate", func(t *testing.T) {
		rels, err := client.ListNamedRelations(context.Background(), editionPID, domain.PredicateIsPartOfNewspaper, "")
		require.NoError(t, err)
		require.Len(t, rels, 2)
		assert.Equal(t, domain.NewItem(titlePID), rels[0].Target())
		assert.Equal(t, "info:fedora/"+editionPID, rels[0].Subject)

		req := fake.requests[len(fake.requests)-1]
		assert.Equal(t, "/fedora/objects/"+editionPID+"/relationships", req.Path)
		assert.Equal(t, "info:fedora/"+editionPID, req.Query["subject"])
		assert.Equal(t, domain.PredicateIsPartOfNewspaper, req.Query["predicate"])
		assert.Equal(t, "n-triples", req.Query["format"])
	})

	t.Run("filters on object", func(t *testing.T) {
		rels, err := client.ListNamedRelations(context.Background(), editionPID, domain.PredicateIsPartOfNewspaper, "info:fedora/uuid:other")
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, "uuid:other", rels[0].Target().PID)
	})
}

func TestParseNTriples(t *testing.T) {
	rels, err := parseNTriples([]byte(`# comment
<info:fedora/a> <http://p> "literal \"value\"" .
<info:fedora/a> <http://p> <info:fedora/b>.
`))
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, `literal "value"`, rels[0].Object)
	assert.Equal(t, "info:fedora/b", rels[1].Object)

	_, err = parseNTriples([]byte("not a triple"))
	assert.Error(t, err)

	_, err = parseNTriples([]byte("<a> <b> c ."))
	assert.Error(t, err)
}

func TestAddAndDeleteRelation(t *testing.T) {
	client, fake := newTestClient(t, func(n int, r *http.Request) (int, string) {
		return http.StatusOK, ""
	})
	ctx := context.Background()

	require.NoError(t, client.AddRelation(ctx, editionPID, domain.ToURI(editionPID), domain.PredicateIsPartOfNewspaper, domain.ToURI(titlePID), false, domain.RelationComment))
	require.NoError(t, client.DeleteRelation(ctx, editionPID, domain.ToURI(editionPID), domain.PredicateIsPartOfNewspaper, domain.ToURI(titlePID), false, domain.RelationComment))

	require.Len(t, fake.requests, 2)

	add := fake.requests[0]
	assert.Equal(t, http.MethodPost, add.Method)
	assert.Equal(t, "/fedora/objects/"+editionPID+"/relationships/new", add.Path)
	assert.Equal(t, "info:fedora/"+titlePID, add.Query["object"])
	assert.Equal(t, "false", add.Query["isLiteral"])

	del := fake.requests[1]
	assert.Equal(t, http.MethodDelete, del.Method)
	assert.Equal(t, "/fedora/objects/"+editionPID+"/relationships", del.Path)
	assert.Equal(t, domain.PredicateIsPartOfNewspaper, del.Query["predicate"])
}

func TestRelationWritePublishedRejection(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			client, fake := newTestClient(t, func(n int, r *http.Request) (int, string) {
				return status, "object is published"
			})

			err := client.AddRelation(context.Background(), editionPID, domain.ToURI(editionPID), domain.PredicateIsPartOfNewspaper, domain.ToURI(titlePID), false, domain.RelationComment)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrPublished)

			var te *domain.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "add relation", te.Op)
			assert.Len(t, fake.requests, 1, "client errors are not retried")
		})
	}

	t.Run("other client errors are not a published rejection", func(t *testing.T) {
		client, _ := newTestClient(t, func(n int, r *http.Request) (int, string) {
			return http.StatusNotFound, ""
		})
		err := client.DeleteRelation(context.Background(), editionPID, domain.ToURI(editionPID), domain.PredicateIsPartOfNewspaper, domain.ToURI(titlePID), false, domain.RelationComment)
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrPublished))
	})
}

func TestSetObjectState(t *testing.T) {
	client, fake := newTestClient(t, func(n int, r *http.Request) (int, string) {
		return http.StatusOK, ""
	})

	require.NoError(t, client.SetObjectState(context.Background(), editionPID, domain.StateInactive, domain.StateComment))

	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodPut, fake.requests[0].Method)
	assert.Equal(t, "/fedora/objects/"+editionPID, fake.requests[0].Path)
	assert.Equal(t, "I", fake.requests[0].Query["state"])
	assert.Equal(t, domain.StateComment, fake.requests[0].Query["logMessage"])
}

func TestRetries(t *testing.T) {
	t.Run("server errors are retried", func(t *testing.T) {
		client, fake := newTestClient(t, func(n int, r *http.Request) (int, string) {
			if n < 3 {
				return http.StatusServiceUnavailable, ""
			}
			return http.StatusOK, "content"
		})

		doc, err := client.GetDocument(context.Background(), editionPID, domain.EditionDatastream)
		require.NoError(t, err)
		assert.Equal(t, "content", string(doc))
		assert.Len(t, fake.requests, 3)
	})

	t.Run("gives up after configured retries", func(t *testing.T) {
		client, fake := newTestClient(t, func(n int, r *http.Request) (int, string) {
			return http.StatusBadGateway, "down"
		})

		_, err := client.GetDocument(context.Background(), editionPID, domain.EditionDatastream)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
		assert.Len(t, fake.requests, 3)
	})
}
