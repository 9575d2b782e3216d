package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/chariotlab/atelier-api/internal/common"
	"github.com/chariotlab/atelier-api/internal/pricing"
)

const feedCacheKey = "catalog:feed"

// Fetcher retrieves the normalised upstream feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Product, error)
}

// Service serves catalog reads: the filtered product listing, product detail,
// and the fixed accessory/material data.
type Service struct {
	source       Fetcher
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Source       Fetcher
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for the product listing. Query is threaded in
// explicitly from the request; there is no ambient search state.
type ListParams struct {
	Query      string
	Department string
	Material   string
	MinPrice   *pricing.Money
	MaxPrice   *pricing.Money
	Sort       string
	Page       int
	Limit      int
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []Product
	Total int
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog: source is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 12
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		source:       cfg.Source,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Page:  1,
		Limit: s.defaultLimit,
	}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Department = strings.TrimSpace(values.Get("department"))
	params.Material = strings.TrimSpace(values.Get("material"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}

	limit := s.defaultLimit
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		limit = l
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	params.Limit = limit

	if v := strings.TrimSpace(values.Get("minPrice")); v != "" {
		parsed, err := pricing.ParseAmount(v)
		if err != nil {
			return params, badRequest("minPrice", "minPrice must be a valid amount", err)
		}
		params.MinPrice = &parsed
	}
	if v := strings.TrimSpace(values.Get("maxPrice")); v != "" {
		parsed, err := pricing.ParseAmount(v)
		if err != nil {
			return params, badRequest("maxPrice", "maxPrice must be a valid amount", err)
		}
		params.MaxPrice = &parsed
	}
	if params.MinPrice != nil && params.MaxPrice != nil && *params.MinPrice > *params.MaxPrice {
		return params, badRequest("price", "minPrice cannot be greater than maxPrice", fmt.Errorf("invalid price range"))
	}

	params.Sort = normalizeSort(values.Get("sort"))
	return params, nil
}

// ListProducts returns the filtered, sorted, paginated product listing.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ListResult, error) {
	products, err := s.snapshot(ctx)
	if err != nil {
		return ListResult{}, err
	}

	filtered := make([]Product, 0, len(products))
	for _, p := range products {
		if !matches(p, params) {
			continue
		}
		filtered = append(filtered, p)
	}
	sortProducts(filtered, params.Sort)

	total := len(filtered)
	start := (params.Page - 1) * params.Limit
	if start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	return ListResult{
		Items: filtered[start:end],
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}, nil
}

// GetProduct returns the product for the given id.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, badRequest("id", "product id is required", nil)
	}
	products, err := s.snapshot(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound}
}

// snapshot returns the cached feed, refreshing it from the source on miss.
func (s *Service) snapshot(ctx context.Context) ([]Product, error) {
	if s.cache != nil {
		var cached []Product
		ok, err := s.cache.GetJSON(ctx, feedCacheKey, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	products, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, &common.AppError{
			Code:       "UPSTREAM_UNAVAILABLE",
			Message:    "unable to load products, please retry later",
			HTTPStatus: http.StatusBadGateway,
			Err:        err,
		}
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, feedCacheKey, products)
	}
	return products, nil
}

func matches(p Product, params ListParams) bool {
	if params.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(params.Query)) {
		return false
	}
	if params.Department != "" && p.Department != params.Department {
		return false
	}
	if params.Material != "" && p.Material != params.Material {
		return false
	}
	if params.MinPrice != nil && p.Price < *params.MinPrice {
		return false
	}
	if params.MaxPrice != nil && p.Price > *params.MaxPrice {
		return false
	}
	return true
}

func sortProducts(products []Product, order string) {
	switch order {
	case "price-desc":
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price > products[j].Price })
	case "name-asc":
		sort.SliceStable(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	case "name-desc":
		sort.SliceStable(products, func(i, j int) bool { return products[i].Name > products[j].Name })
	default: // price-asc
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price < products[j].Price })
	}
}

func normalizeSort(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "price-asc", "price-desc", "name-asc", "name-desc":
		return s
	default:
		return "price-asc"
	}
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
