package domain

import (
	"context"
	"log/slog"
)

// GeocodingResult is the best match a provider returned for a place query.
// Confidence is the provider's relevance score in [0, 1].
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64
}

// Found reports whether the provider matched anything.
func (r GeocodingResult) Found() bool {
	return r.FormattedAddress != "" || r.Lat != 0 || r.Lon != 0
}

// Geocoder looks up a city, optionally narrowed by region. A zero result with
// a nil error means no match.
type Geocoder interface {
	ForwardGeocode(ctx context.Context, name, region string) (GeocodingResult, error)
}

// EnrichWithGeocoding attaches coordinates to each series point by looking
// up its city once per run. If geocoder is nil, or a lookup fails or finds
// nothing, the affected points are returned without Geo (graceful
// degradation). The input slice is not modified.
func EnrichWithGeocoding(ctx context.Context, points []SeriesPoint, geocoder Geocoder, logger *slog.Logger) []SeriesPoint {
	if geocoder == nil || len(points) == 0 {
		return points
	}

	resolved := make(map[string]*Geo)
	out := make([]SeriesPoint, len(points))
	for i, p := range points {
		out[i] = p
		if p.City == "" {
			continue
		}

		geo, seen := resolved[p.City]
		if !seen {
			geo = lookupCity(ctx, geocoder, p.City, logger)
			resolved[p.City] = geo
		}
		if geo != nil {
			g := *geo
			out[i].Geo = &g
		}
	}
	return out
}

func lookupCity(ctx context.Context, geocoder Geocoder, city string, logger *slog.Logger) *Geo {
	result, err := geocoder.ForwardGeocode(ctx, city, "")
	if err != nil {
		logger.Warn("forward geocoding failed", "city", city, "error", err)
		return nil
	}
	if !result.Found() {
		logger.Debug("no geocoding match", "city", city)
		return nil
	}
	return &Geo{
		Lat:        result.Lat,
		Lon:        result.Lon,
		PlaceName:  result.FormattedAddress,
		Confidence: result.Confidence,
	}
}
