package redisq

import (
	"context"
	"fmt"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var _ ports.ProductStore = (*ProductStore)(nil)

// ProductStore writes products to {prefix}:product:{id} and indexes them in
// {prefix}:products in insertion order.
type ProductStore struct {
	c   *Client
	now func() time.Time
}

func NewProductStore(c *Client) *ProductStore {
	return &ProductStore{c: c, now: time.Now}
}

func (s *ProductStore) Save(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.c.Rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.c.key("product", p.ID), map[string]any{
			"id":               p.ID,
			"name":             p.Name,
			"description":      p.Description,
			"price":            p.Price.StringFixed(2),
			"publication_date": formatTime(p.PublicationDate),
			"source_url":       p.SourceURL,
		})
		pipe.ZAddNX(ctx, s.c.key("products"), redis.Z{Score: score(s.now()), Member: p.ID})
		return nil
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("save product %s: %w", p.ID, err)
	}
	return p, nil
}

func (s *ProductStore) FindAll(ctx context.Context) ([]domain.Product, error) {
	ids, err := s.c.Rdb.ZRange(ctx, s.c.key("products"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.c.Rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.c.key("product", id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	out := make([]domain.Product, 0, len(ids))
	for _, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		price, err := decimal.NewFromString(h["price"])
		if err != nil {
			return nil, fmt.Errorf("decode product %s price: %w", h["id"], err)
		}
		published, err := parseTime(h["publication_date"])
		if err != nil {
			return nil, fmt.Errorf("decode product %s publication_date: %w", h["id"], err)
		}
		out = append(out, domain.Product{
			ID:              h["id"],
			Name:            h["name"],
			Description:     h["description"],
			Price:           price,
			PublicationDate: published,
			SourceURL:       h["source_url"],
		})
	}
	return out, nil
}
