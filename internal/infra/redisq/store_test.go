package redisq

import (
	"context"
	"priceparser/internal/config"
	"priceparser/internal/domain"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(config.Redis{Addr: mr.Addr(), KeyPrefix: "test"})
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Connect(context.Background()))
	return c, mr
}

func TestTaskStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	store := NewTaskStore(c)

	created := time.Date(2025, 2, 3, 4, 5, 6, 789000, time.UTC)
	saved, err := store.Save(ctx, domain.ParsingTask{
		URL:       "https://example.com/product/1",
		Status:    domain.StatusNew,
		CreatedAt: created,
		UpdatedAt: created,
	})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.True(t, mr.Exists("test:task:"+saved.ID))

	got, err := store.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.URL, got.URL)
	assert.Equal(t, domain.StatusNew, got.Status)
	assert.True(t, created.Equal(got.CreatedAt))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTaskStore_StatusIndexFollowsTransitions(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	store := NewTaskStore(c)

	task, err := domain.NewParsingTask("https://example.com/a", time.Now())
	require.NoError(t, err)
	task, err = store.Save(ctx, task)
	require.NoError(t, err)

	require.NoError(t, task.Claim(time.Now()))
	task, err = store.Save(ctx, task)
	require.NoError(t, err)

	news, err := store.FindByStatus(ctx, domain.StatusNew)
	require.NoError(t, err)
	assert.Empty(t, news)
	running, err := store.FindByStatus(ctx, domain.StatusInProgress)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, task.ID, running[0].ID)

	require.NoError(t, task.Fail("boom", time.Now()))
	_, err = store.Save(ctx, task)
	require.NoError(t, err)

	failed, err := store.FindByStatus(ctx, domain.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].ErrorMessage)
	running, err = store.FindByStatus(ctx, domain.StatusInProgress)
	require.NoError(t, err)
	assert.Empty(t, running)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTaskStore_KeepsCreatedAtAndOrder(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	store := NewTaskStore(c)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for _, offset := range []time.Duration{3, 1, 2} {
		saved, err := store.Save(ctx, domain.ParsingTask{
			URL: "https://example.com", Status: domain.StatusNew, CreatedAt: base.Add(offset * time.Second),
		})
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	tasks, err := store.FindByStatus(ctx, domain.StatusNew)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{ids[1], ids[2], ids[0]}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})

	moved := tasks[0]
	moved.CreatedAt = base.Add(time.Hour)
	again, err := store.Save(ctx, moved)
	require.NoError(t, err)
	assert.True(t, base.Add(time.Second).Equal(again.CreatedAt))
}

func TestTaskStore_FindByIDMissing(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := NewTaskStore(c).FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskStore_RedisDown(t *testing.T) {
	c, mr := newTestClient(t)
	mr.SetError("ERR store unavailable")

	_, err := NewTaskStore(c).FindByStatus(context.Background(), domain.StatusNew)
	assert.Error(t, err)
}

func TestProductStore_SaveAndFindAll(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	store := NewProductStore(c)
	published := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)

	for _, name := range []string{"First", "Second"} {
		_, err := store.Save(ctx, domain.Product{
			Name:            name,
			Description:     "Demo product",
			Price:           decimal.New(1999, -2),
			PublicationDate: published,
			SourceURL:       "https://example.com/" + name,
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "First", all[0].Name)
	assert.Equal(t, "Second", all[1].Name)
	assert.Equal(t, "19.99", all[0].Price.StringFixed(2))
	assert.True(t, published.Equal(all[0].PublicationDate))
	assert.NotEmpty(t, all[0].ID)
}
