// Package ingest fetches road geometry from the OpenStreetMap Overpass API
// and converts it to the GeoJSON features the dataset is made of.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/roadlog/roadlog/pkg/dlogger"
	"github.com/roadlog/roadlog/pkg/ingest/status"

	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultEndpoints are the public Overpass mirrors tried in order
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass.openstreetmap.ru/api/interpreter",
}

// DefaultClasses are the highway classes fetched when none are requested
var DefaultClasses = []string{"residential", "service", "secondary", "tertiary"}

// allowedClasses bounds what may be interpolated into an Overpass regex
var allowedClasses = map[string]struct{}{
	"motorway":     {},
	"trunk":        {},
	"primary":      {},
	"secondary":    {},
	"tertiary":     {},
	"residential":  {},
	"service":      {},
	"unclassified": {},
}

// BBox is a geographic bounding box in the south,west,north,east convention
// used by Overpass.
type BBox struct {
	South float64
	West  float64
	North float64
	East  float64
	_     struct{}
}

// ParseBBox parses "south,west,north,east"
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, status.ErrBBox.WrapMessage(s)
	}
	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return BBox{}, status.ErrBBox.Wrap(err)
		}
		vals[i] = v
	}
	return BBox{South: vals[0], West: vals[1], North: vals[2], East: vals[3]}, nil
}

func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.South, b.West, b.North, b.East)
}

// FilterClasses keeps the requested highway classes that are allowed,
// falling back to the defaults when nothing valid remains.
func FilterClasses(requested []string) []string {
	kept := make([]string, 0, len(requested))
	for _, class := range requested {
		class = strings.TrimSpace(class)
		if _, ok := allowedClasses[class]; ok {
			kept = append(kept, class)
		}
	}
	if len(kept) == 0 {
		return append([]string(nil), DefaultClasses...)
	}
	sort.Strings(kept)
	return kept
}

// Client queries Overpass mirrors for road data
type Client struct {
	endpoints []string
	client    *http.Client
	l         *zap.Logger
}

// Option is a functor to build a client with some options
type Option func(*Client)

// Endpoints overrides the mirror list
func Endpoints(endpoints ...string) Option {
	return func(c *Client) {
		if len(endpoints) > 0 {
			c.endpoints = endpoints
		}
	}
}

// HTTPClient overrides the http client, e.g. to set timeouts
func HTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// Logger sets a logger for this client
func Logger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.l = logger
		}
	}
}

// New builds an Overpass client
func New(options ...Option) *Client {
	c := &Client{
		endpoints: DefaultEndpoints,
		client:    &http.Client{Timeout: 150 * time.Second},
		l:         dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// overpass wire format
type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

func buildQuery(bbox BBox, classes []string) string {
	classRegex := "^(" + strings.Join(classes, "|") + ")$"
	return fmt.Sprintf(
		"[out:json][timeout:120][bbox:%s];\n(\n  way[\"highway\"~\"%s\"];\n);\n(._;>;);\nout body;\n",
		bbox.String(), classRegex)
}

// Roads fetches the ways of the requested highway classes within bbox and
// returns them as LineString features. Mirrors are tried in order; the
// errors accumulate and are all reported when every mirror fails.
//
// Feature identifiers are "w" followed by the OSM way id, and the way's tags
// become properties alongside the _osm_type and _osm_id origin markers.
// Ways with fewer than two resolvable nodes are dropped.
func (c *Client) Roads(ctx context.Context, bbox BBox, classes []string) (*geojson.FeatureCollection, error) {
	query := buildQuery(bbox, FilterClasses(classes))

	var merr *multierror.Error
	for _, endpoint := range c.endpoints {
		resp, err := c.post(ctx, endpoint, query)
		if err != nil {
			merr = multierror.Append(merr, err)
			c.l.Warn("overpass mirror failed",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			continue
		}
		return toFeatures(resp), nil
	}
	return nil, status.ErrMirrors.Wrap(merr.ErrorOrNil())
}

func (c *Client) post(ctx context.Context, endpoint, query string) (*overpassResponse, error) {
	form := url.Values{"data": []string{query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass error %d at %s", resp.StatusCode, endpoint)
	}

	var parsed overpassResponse
	if err := codec.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, status.ErrDecode.Wrap(err)
	}
	return &parsed, nil
}

func toFeatures(resp *overpassResponse) *geojson.FeatureCollection {
	nodes := make(map[int64]orb.Point)
	var ways []overpassElement
	for _, el := range resp.Elements {
		switch el.Type {
		case "node":
			nodes[el.ID] = orb.Point{el.Lon, el.Lat}
		case "way":
			ways = append(ways, el)
		}
	}

	fc := geojson.NewFeatureCollection()
	for _, way := range ways {
		coords := make(orb.LineString, 0, len(way.Nodes))
		for _, nid := range way.Nodes {
			if p, ok := nodes[nid]; ok {
				coords = append(coords, p)
			}
		}
		if len(coords) < 2 {
			continue
		}

		f := geojson.NewFeature(coords)
		f.ID = "w" + strconv.FormatInt(way.ID, 10)
		for k, v := range way.Tags {
			f.Properties[k] = v
		}
		f.Properties["_osm_type"] = "way"
		f.Properties["_osm_id"] = way.ID
		fc.Append(f)
	}
	return fc
}

// Source binds a bbox and class list to the client, yielding a provider of
// replacement datasets for checkpointing.
func (c *Client) Source(bbox BBox, classes []string) *Source {
	return &Source{client: c, bbox: bbox, classes: classes}
}

// Source fetches a fixed region on demand
type Source struct {
	client  *Client
	bbox    BBox
	classes []string
}

// Roads fetches the bound region
func (s *Source) Roads(ctx context.Context) (*geojson.FeatureCollection, error) {
	return s.client.Roads(ctx, s.bbox, s.classes)
}
