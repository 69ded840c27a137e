// Package loader fetches the network document and turns it into map
// features.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"gridmap/internal/mapview"
	"gridmap/internal/network"
)

// Endpoint is the fixed path of the network document.
const Endpoint = "/network_data"

type Loader struct {
	log     zerolog.Logger
	client  *http.Client
	baseURL string
}

// New returns a loader for the server at baseURL. A nil client means
// http.DefaultClient; no timeout is imposed beyond the caller's context.
func New(log zerolog.Logger, client *http.Client, baseURL string) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		log:     log.With().Str("component", "loader").Logger(),
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Load performs the one fetch for v, populates its layers and dispatches
// FetchCompleted. Any failure is logged and reported in the summary; v is
// left usable with no data features.
func (l *Loader) Load(ctx context.Context, v *mapview.MapView) mapview.LoadSummary {
	sum, err := l.load(ctx, v)
	if err != nil {
		l.log.Error().Err(err).Msg("error fetching network data")
		sum = mapview.LoadSummary{Missing: []string{}, Err: err}
	}
	v.Events.Dispatch(mapview.FetchCompleted{Summary: sum})
	return sum
}

func (l *Loader) load(ctx context.Context, v *mapview.MapView) (mapview.LoadSummary, error) {
	u, err := url.Parse(l.baseURL + Endpoint)
	if err != nil {
		return mapview.LoadSummary{}, fmt.Errorf("building request url: %w", err)
	}
	q := u.Query()
	q.Set("variant", string(v.Variant))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return mapview.LoadSummary{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return mapview.LoadSummary{}, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return mapview.LoadSummary{}, fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return Populate(l.log, v, resp.Body)
}

// Populate decodes a document in v's layout from r and draws it. Nothing is
// drawn when decoding fails.
func Populate(log zerolog.Logger, v *mapview.MapView, r io.Reader) (mapview.LoadSummary, error) {
	switch v.Variant {
	case network.VariantFlat:
		doc, rep, err := network.DecodeFlat(r)
		if err != nil {
			return mapview.LoadSummary{}, err
		}
		log.Debug().Int("substations", len(doc.Substations)).Int("lines", len(doc.Lines)).Msg("received network data")
		return PopulateFlat(log, v, doc, rep), nil
	case network.VariantPartitioned:
		doc, rep, err := network.DecodePartitioned(r)
		if err != nil {
			return mapview.LoadSummary{}, err
		}
		return PopulatePartitioned(log, v, doc, rep), nil
	default:
		return mapview.LoadSummary{}, fmt.Errorf("unknown variant %q", v.Variant)
	}
}
