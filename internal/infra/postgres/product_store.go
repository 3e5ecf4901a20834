package postgres

import (
	"context"
	"fmt"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var _ ports.ProductStore = (*ProductStore)(nil)

type ProductStore struct {
	db DBTX
}

func NewProductStore(db DBTX) *ProductStore {
	return &ProductStore{db: db}
}

// Save passes the price as text so NUMERIC keeps it exactly.
func (s *ProductStore) Save(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	var published any
	if !p.PublicationDate.IsZero() {
		published = p.PublicationDate
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO products (id, name, description, price, publication_date, source_url)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
		p.ID, p.Name, p.Description, p.Price.StringFixed(2), published, p.SourceURL,
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("save product %s: %w", p.ID, err)
	}
	return p, nil
}

func (s *ProductStore) FindAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, name, COALESCE(description, ''), price::text, publication_date, COALESCE(source_url, '')
		FROM products ORDER BY inserted_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func scanProduct(rows pgx.Rows) (domain.Product, error) {
	var (
		p         domain.Product
		price     string
		published *time.Time
	)
	if err := rows.Scan(&p.ID, &p.Name, &p.Description, &price, &published, &p.SourceURL); err != nil {
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	amount, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("decode product %s price: %w", p.ID, err)
	}
	p.Price = amount
	if published != nil {
		p.PublicationDate = *published
	}
	return p, nil
}
