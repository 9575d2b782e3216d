package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chariotlab/atelier-api/internal/obs"
	"github.com/chariotlab/atelier-api/internal/pricing"
	"github.com/chariotlab/atelier-api/internal/resilience"
)

// sourceRecord mirrors the upstream feed's wire shape. Field names are the
// feed's own (French); prix may arrive as a number or a numeric string.
type sourceRecord struct {
	ID          any    `json:"id"`
	Nom         string `json:"nom"`
	Prix        any    `json:"prix"`
	Image       string `json:"image"`
	Taille      string `json:"taille"`
	Departement string `json:"departement"`
	Materiau    string `json:"materiau"`
}

// Source fetches and normalises the upstream product feed.
type Source struct {
	URL    string
	Client resilience.HTTPClient
	Logger zerolog.Logger
}

// Fetch retrieves the feed and normalises it record by record. A record that
// cannot be normalised (missing name, unparsable price) is skipped and
// logged; only a non-array body or a transport failure fails the whole fetch.
// The request is cancelled when ctx is cancelled.
func (s *Source) Fetch(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		s.countFetch("error")
		return nil, fmt.Errorf("catalog: fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		s.countFetch("error")
		return nil, fmt.Errorf("catalog: feed returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.countFetch("error")
		return nil, fmt.Errorf("catalog: read feed body: %w", err)
	}

	var records []sourceRecord
	if err := json.Unmarshal(body, &records); err != nil {
		s.countFetch("malformed")
		return nil, fmt.Errorf("catalog: feed is not a product array: %w", err)
	}

	products := make([]Product, 0, len(records))
	for i, rec := range records {
		product, err := normalizeRecord(rec)
		if err != nil {
			if obs.CatalogRecordsSkipped != nil {
				obs.CatalogRecordsSkipped.Inc()
			}
			s.Logger.Warn().Err(err).Int("index", i).Msg("skip malformed catalog record")
			continue
		}
		products = append(products, product)
	}
	s.countFetch("ok")
	return products, nil
}

func (s *Source) countFetch(result string) {
	if obs.CatalogSourceFetchTotal != nil {
		obs.CatalogSourceFetchTotal.WithLabelValues(result).Inc()
	}
}

func normalizeRecord(rec sourceRecord) (Product, error) {
	name := strings.TrimSpace(rec.Nom)
	if name == "" {
		return Product{}, fmt.Errorf("record has no name")
	}
	price, err := pricing.ParseAmount(rec.Prix)
	if err != nil {
		return Product{}, err
	}
	return Product{
		ID:         normalizeID(rec.ID),
		Name:       name,
		Price:      price,
		Image:      strings.TrimSpace(rec.Image),
		Size:       strings.TrimSpace(rec.Taille),
		Department: strings.TrimSpace(rec.Departement),
		Material:   strings.TrimSpace(rec.Materiau),
	}, nil
}

// normalizeID coerces the feed id to a string, generating a placeholder for
// records that arrive without one.
func normalizeID(raw any) string {
	switch v := raw.(type) {
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return "product-" + uuid.NewString()[:8]
}
