// Package location resolves the province, district and neighborhood
// hierarchy from the external geographic service.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"whereismypet/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Level tags which tier of the hierarchy a node belongs to.
type Level string

const (
	LevelProvince     Level = "province"
	LevelDistrict     Level = "district"
	LevelNeighborhood Level = "neighborhood"
)

// Node is one entry of the hierarchy.
type Node struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Level Level  `json:"level"`
}

// maxBodyBytes caps a single upstream response.
const maxBodyBytes = 8 << 20

// Directory answers lookups level by level. It keeps no state between calls:
// no cache, no retry and no rate limit.
type Directory struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewDirectory builds a Directory against baseURL. client carries the timeout.
func NewDirectory(baseURL string, client *http.Client, logger *slog.Logger) *Directory {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = observability.GlobalLogger.Logger
	}
	return &Directory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// ListProvinces returns every province, or an empty list on any failure.
func (d *Directory) ListProvinces(ctx context.Context) []Node {
	return d.lookup(ctx, LevelProvince, "/provinces", func(data json.RawMessage) ([]rawNode, error) {
		var items []rawNode
		err := json.Unmarshal(data, &items)
		return items, err
	})
}

// ListDistricts returns the districts of a province, or an empty list.
func (d *Directory) ListDistricts(ctx context.Context, provinceID int) []Node {
	if provinceID <= 0 {
		return []Node{}
	}
	return d.lookup(ctx, LevelDistrict, "/provinces/"+strconv.Itoa(provinceID), func(data json.RawMessage) ([]rawNode, error) {
		var parent struct {
			Districts []rawNode `json:"districts"`
		}
		err := json.Unmarshal(data, &parent)
		return parent.Districts, err
	})
}

// ListNeighborhoods returns the neighborhoods of a district, or an empty list.
func (d *Directory) ListNeighborhoods(ctx context.Context, districtID int) []Node {
	if districtID <= 0 {
		return []Node{}
	}
	return d.lookup(ctx, LevelNeighborhood, "/districts/"+strconv.Itoa(districtID), func(data json.RawMessage) ([]rawNode, error) {
		var parent struct {
			Neighborhoods []rawNode `json:"neighborhoods"`
		}
		err := json.Unmarshal(data, &parent)
		return parent.Neighborhoods, err
	})
}

var errNoData = errors.New("response has no data")

func (d *Directory) lookup(ctx context.Context, level Level, path string, extract func(json.RawMessage) ([]rawNode, error)) []Node {
	ctx, span := observability.GetTraceLayer().TraceHTTPClient(ctx, "geo", "list_"+string(level))
	defer span.End()
	span.SetAttributes(attribute.String("geo.path", path))
	observability.LocationLookups.WithLabelValues(string(level)).Inc()

	nodes, err := d.fetch(ctx, level, path, extract)
	if err != nil {
		observability.RecordSpanError(span, err)
		observability.LocationLookupFailures.WithLabelValues(string(level)).Inc()
		d.logger.WarnContext(ctx, "location lookup failed",
			slog.String("level", string(level)),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return []Node{}
	}
	span.SetAttributes(attribute.Int("geo.results", len(nodes)))
	return nodes
}

func (d *Directory) fetch(ctx context.Context, level Level, path string, extract func(json.RawMessage) ([]rawNode, error)) ([]Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, errNoData
	}

	raw, err := extract(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s list: %w", level, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("response has no %s list", level)
	}
	return toNodes(raw, level), nil
}

// rawNode is the untrusted wire shape; every field is optional.
type rawNode struct {
	ID   flexInt `json:"id"`
	Name *string `json:"name"`
}

func toNodes(raw []rawNode, level Level) []Node {
	nodes := make([]Node, 0, len(raw))
	for _, r := range raw {
		if !r.ID.set || r.Name == nil {
			continue
		}
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			continue
		}
		nodes = append(nodes, Node{ID: r.ID.value, Name: name, Level: level})
	}
	return nodes
}

// flexInt accepts a JSON number or a numeric string. Anything else leaves it unset.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	f.value, f.set = n, true
	return nil
}
