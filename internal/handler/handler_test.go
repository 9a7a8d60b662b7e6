package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"editionlinks/internal/domain"
	"editionlinks/internal/service"
)

type fakeReconciler struct {
	got    []domain.Item
	result *service.Result
	err    error
}

func (f *fakeReconciler) Reconcile(ctx context.Context, edition domain.Item) (*service.Result, error) {
	f.got = append(f.got, edition)
	return f.result, f.err
}

type fakeTitles struct {
	set domain.ItemSet
	err error
}

func (f *fakeTitles) WantedTitles(ctx context.Context, avisID, date string) (domain.ItemSet, error) {
	return f.set, f.err
}

func newTestServer(rec Reconciler, titles TitleFinder) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	NewEditionHandler(rec, titles, logger).Register(mux)
	return Chain(mux, Recover(logger), Logger(logger))
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestReconcileEndpoint(t *testing.T) {
	rec := &fakeReconciler{result: &service.Result{
		Edition: domain.NewItem("uuid:e"),
		Added:   []domain.Item{domain.NewItem("uuid:t")},
	}}
	srv := newTestServer(rec, &fakeTitles{})

	w := do(t, srv, http.MethodPost, "/api/editions/uuid:e/reconcile")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []domain.Item{domain.NewItem("uuid:e")}, rec.got)

	var body service.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, []domain.Item{domain.NewItem("uuid:t")}, body.Added)
}

func TestReconcileEndpointAcceptsURI(t *testing.T) {
	rec := &fakeReconciler{result: &service.Result{}}
	srv := newTestServer(rec, &fakeTitles{})

	w := do(t, srv, http.MethodPost, "/api/editions/info:fedora%2Fuuid:e/reconcile")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []domain.Item{domain.NewItem("uuid:e")}, rec.got)

	// An unescaped slash splits the segment and matches no route
	w = do(t, srv, http.MethodPost, "/api/editions/info:fedora/uuid:e/reconcile")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, rec.got, 1)
}

func TestReconcileEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"missing metadata", &domain.MetadataMissingError{Field: "originInfo/dateIssued"}, http.StatusUnprocessableEntity},
		{"index failure", &domain.IndexQueryError{Query: "q", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"published", &domain.TransportError{Op: "add relation", PID: "uuid:e", Err: domain.ErrPublished}, http.StatusConflict},
		{"transport", &domain.TransportError{Op: "get", PID: "uuid:e", Err: errors.New("reset")}, http.StatusBadGateway},
		{"wrapped missing metadata", fmt.Errorf("reconcile: %w", &domain.MetadataMissingError{Field: "mods"}), http.StatusUnprocessableEntity},
		{"joined index failure", errors.Join(errors.New("first"), &domain.IndexQueryError{Query: "q", Err: errors.New("down")}), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeReconciler{result: &service.Result{Edition: domain.NewItem("uuid:e")}, err: tt.err}
			w := do(t, newTestServer(rec, &fakeTitles{}), http.MethodPost, "/api/editions/uuid:e/reconcile")

			assert.Equal(t, tt.status, w.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.err.Error(), body.Details)
			require.NotNil(t, body.Result)
			assert.Equal(t, "uuid:e", body.Result.Edition.PID)
		})
	}
}

func TestReconcileEndpointMethod(t *testing.T) {
	w := do(t, newTestServer(&fakeReconciler{}, &fakeTitles{}), http.MethodGet, "/api/editions/uuid:e/reconcile")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestListTitles(t *testing.T) {
	titles := &fakeTitles{set: domain.NewItemSet(domain.NewItem("uuid:b"), domain.NewItem("uuid:a"))}
	srv := newTestServer(&fakeReconciler{}, titles)

	w := do(t, srv, http.MethodGet, "/api/titles?avis_id=avis&date=1955-03-01")
	require.Equal(t, http.StatusOK, w.Code)

	var body TitlesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "avis", body.AvisID)
	assert.Equal(t, []domain.Item{domain.NewItem("uuid:a"), domain.NewItem("uuid:b")}, body.Titles)

	w = do(t, srv, http.MethodGet, "/api/titles?avis_id=avis")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	titles.err = &domain.IndexQueryError{Query: "q", Err: errors.New("down")}
	w = do(t, srv, http.MethodGet, "/api/titles?avis_id=avis&date=d")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(&fakeReconciler{}, &fakeTitles{}), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRecover(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Recover(logger))

	w := do(t, h, http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
