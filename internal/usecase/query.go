package usecase

import (
	"context"
	"fmt"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultPageSize = 20

type SortField string

const (
	SortByPrice           SortField = "price"
	SortByName            SortField = "name"
	SortByPublicationDate SortField = "publicationDate"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseSortField accepts the field names and their upper snake case forms.
// Empty selects price.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "", "price":
		return SortByPrice, nil
	case "name":
		return SortByName, nil
	case "publicationdate":
		return SortByPublicationDate, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// ParseDirection is case-insensitive. Empty selects desc.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return Desc, nil
	case "asc":
		return Asc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

type ProductFilter struct {
	// Query matches a case-insensitive substring of the name.
	Query     string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	SortBy    SortField
	Direction Direction
	Page      int
	Size      int
}

type Page struct {
	Content []domain.Product `json:"content"`
	Page    int              `json:"page"`
	Size    int              `json:"size"`
	Total   int              `json:"total"`
}

// ProductQuery is the read side over stored products.
type ProductQuery struct {
	Products ports.ProductStore
}

// List pages through all products, newest first.
func (q ProductQuery) List(ctx context.Context, page, size int) (Page, error) {
	return q.Filter(ctx, ProductFilter{
		SortBy:    SortByPublicationDate,
		Direction: Desc,
		Page:      page,
		Size:      size,
	})
}

func (q ProductQuery) Filter(ctx context.Context, f ProductFilter) (Page, error) {
	all, err := q.Products.FindAll(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("load products: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(f.Query))
	matched := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		matched = append(matched, p)
	}

	sortProducts(matched, f.SortBy, f.Direction)

	page := max(f.Page, 0)
	size := f.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	from := len(matched)
	if page <= len(matched)/size {
		from = page * size
	}
	to := min(from+size, len(matched))

	return Page{
		Content: matched[from:to],
		Page:    page,
		Size:    size,
		Total:   len(matched),
	}, nil
}

// sortProducts orders by field; zero publication dates go last whatever
// the direction.
func sortProducts(ps []domain.Product, field SortField, dir Direction) {
	desc := dir != Asc
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		var c int
		switch field {
		case SortByName:
			c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByPublicationDate:
			az, bz := a.PublicationDate.IsZero(), b.PublicationDate.IsZero()
			if az != bz {
				return bz
			}
			c = a.PublicationDate.Compare(b.PublicationDate)
		default:
			c = a.Price.Cmp(b.Price)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
