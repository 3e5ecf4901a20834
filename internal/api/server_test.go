package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"priceparser/internal/domain"
	"priceparser/internal/infra/memory"
	"priceparser/internal/usecase"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	tasks    *memory.TaskStore
	products *memory.ProductStore
	handler  http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{tasks: memory.NewTaskStore(), products: memory.NewProductStore()}
	srv := NewServer(Deps{
		Submitter: usecase.Submitter{Tasks: f.tasks},
		Query:     usecase.ProductQuery{Products: f.products},
		Registry:  prometheus.NewRegistry(),
	})
	f.handler = srv.Handler()
	return f
}

func (f fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateTask(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/parse", `{"url":"  https://example.com/product/1 "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[taskResponse](t, rec)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "https://example.com/product/1", got.URL)
	assert.Equal(t, domain.StatusNew, got.Status)
	assert.Nil(t, got.ErrorMessage)

	stored, err := f.tasks.FindByID(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, stored.Status)
}

func TestCreateTask_BadRequests(t *testing.T) {
	f := newFixture(t)
	for name, body := range map[string]string{
		"blank url":   `{"url":"   "}`,
		"missing url": `{}`,
		"not json":    `url=https://a`,
		"too long":    `{"url":"https://example.com/` + strings.Repeat("a", 1000) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/parse", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}

	n, err := f.tasks.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetTask(t *testing.T) {
	f := newFixture(t)
	saved, err := f.tasks.Save(context.Background(), domain.ParsingTask{
		URL: "https://a", Status: domain.StatusFailed, ErrorMessage: "boom",
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/tasks/"+saved.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[taskResponse](t, rec)
	assert.Equal(t, domain.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "boom", *got.ErrorMessage)

	rec = f.do(t, http.MethodGet, "/tasks/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func seedProducts(t *testing.T, f fixture) {
	t.Helper()
	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []struct {
		name  string
		price string
	}{{"Cheap phone", "10.00"}, {"Laptop", "95.50"}, {"Phone case", "12.00"}} {
		_, err := f.products.Save(context.Background(), domain.Product{
			Name:            p.name,
			Price:           decimal.RequireFromString(p.price),
			PublicationDate: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	seedProducts(t, f)

	rec := f.do(t, http.MethodGet, "/products?size=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pageResponse](t, rec)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Size)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "Phone case", page.Content[0].Name)
	assert.Equal(t, "12.00", page.Content[0].Price)
}

func TestFilterProducts(t *testing.T) {
	f := newFixture(t)
	seedProducts(t, f)

	rec := f.do(t, http.MethodGet, "/products/filtered?q=phone&maxPrice=11&sortBy=PRICE&direction=ASC", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pageResponse](t, rec)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Cheap phone", page.Content[0].Name)
	assert.Equal(t, "10.00", page.Content[0].Price)

	rec = f.do(t, http.MethodGet, "/products/filtered", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[pageResponse](t, rec)
	assert.Equal(t, "Laptop", page.Content[0].Name, "default sort is price desc")
	assert.Equal(t, usecase.DefaultPageSize, page.Size)

	for _, q := range []string{"minPrice=abc", "sortBy=rating", "direction=sideways", "page=x"} {
		rec = f.do(t, http.MethodGet, "/products/filtered?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.do(t, http.MethodGet, "/tasks/missing", "")
	rec = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `price_parser_http_requests_total{code="404",method="GET",path="/tasks/{id}"} 1`)
}

func TestRecoverHandler(t *testing.T) {
	h := chainMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), recoverHandler, requestIDHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
