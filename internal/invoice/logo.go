package invoice

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chariotlab/atelier-api/internal/resilience"
)

// LogoFetcher downloads the company logo embedded in the order form header.
// The logo is decorative: any failure is logged and the form renders without
// it.
type LogoFetcher struct {
	URL    string
	Client resilience.HTTPClient
	Logger zerolog.Logger
}

const maxLogoBytes = 2 << 20

// Fetch returns the logo bytes and the image type fpdf expects ("PNG" or
// "JPG"). The boolean reports whether a usable logo was obtained.
func (f *LogoFetcher) Fetch(ctx context.Context) ([]byte, string, bool) {
	if f == nil || f.URL == "" {
		return nil, "", false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		f.Logger.Warn().Err(err).Str("url", f.URL).Msg("logo request build failed")
		return nil, "", false
	}
	resp, err := f.Client.Do(ctx, req)
	if err != nil {
		f.Logger.Warn().Err(err).Str("url", f.URL).Msg("logo fetch failed, rendering without it")
		return nil, "", false
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		f.Logger.Warn().Int("status", resp.StatusCode).Str("url", f.URL).
			Msg("logo fetch returned non-200, rendering without it")
		return nil, "", false
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes))
	if err != nil || len(data) == 0 {
		f.Logger.Warn().Err(err).Str("url", f.URL).Msg("logo read failed, rendering without it")
		return nil, "", false
	}
	imageType := imageTypeFor(resp.Header.Get("Content-Type"), f.URL)
	if imageType == "" {
		f.Logger.Warn().Str("url", f.URL).Msg("logo format unsupported, rendering without it")
		return nil, "", false
	}
	return data, imageType, true
}

func imageTypeFor(contentType, url string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return "PNG"
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return "JPG"
	}
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "PNG"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "JPG"
	}
	return ""
}
