package topology

// Route topology comes from the trip-planning service. It is pure
// enrichment: the vehicle feed keeps working without it, which is why
// Resolve never returns an error and degrades to the last good map instead.

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/urbanplatform/busfeed/internal/upstream"
)

const DefaultTTL = 24 * time.Hour

// RouteDestinations holds every destination string ever seen for one route
// plus the headsigns indexed per direction of travel.
type RouteDestinations struct {
	Destinations map[string]bool
	Directions   map[int][]string
}

// RouteDestinationMap is keyed by route short name. It is built once per
// fetch and never mutated afterwards; consumers treat it as read-only.
type RouteDestinationMap map[string]*RouteDestinations

// FirstHeadsign returns the first headsign registered for the given
// direction of the route, falling back to direction 0 when the direction is
// unknown or absent from the map.
func (m RouteDestinationMap) FirstHeadsign(routeShortName string, direction *int) string {
	routeDestinations, ok := m[routeShortName]
	if !ok {
		return ""
	}
	dir := 0
	if direction != nil {
		dir = *direction
	}
	if headsigns := routeDestinations.Directions[dir]; len(headsigns) > 0 {
		return headsigns[0]
	}
	if dir != 0 {
		if headsigns := routeDestinations.Directions[0]; len(headsigns) > 0 {
			return headsigns[0]
		}
	}
	return ""
}

type Resolver struct {
	client    *upstream.Client
	uri       url.URL
	ttl       time.Duration
	routes    RouteDestinationMap
	fetchedAt time.Time
	mutex     sync.RWMutex
}

func NewResolver(uri url.URL, client *upstream.Client, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{client: client, uri: uri, ttl: ttl}
}

// Resolve returns the current RouteDestinationMap, refreshing it when older
// than the ttl. Concurrent expired callers may each fetch; the map is
// swapped wholesale so the last writer simply wins.
func (r *Resolver) Resolve(ctx context.Context) RouteDestinationMap {
	r.mutex.RLock()
	routes := r.routes
	fetchedAt := r.fetchedAt
	r.mutex.RUnlock()

	if routes != nil && time.Since(fetchedAt) < r.ttl {
		return routes
	}

	fetched, err := r.fetch(ctx)
	if err != nil {
		TopologyLoadingErrors.Inc()
		logrus.Warnf("Error while refreshing route topology, keeping previous data: %s", err)
		if routes != nil {
			return routes
		}
		return RouteDestinationMap{}
	}

	r.mutex.Lock()
	r.routes = fetched
	r.fetchedAt = time.Now()
	r.mutex.Unlock()
	return fetched
}

// GetLastTopologyDataUpdate reports when the map was last rebuilt.
func (r *Resolver) GetLastTopologyDataUpdate() time.Time {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.fetchedAt
}

type topologyResponse struct {
	Data struct {
		Routes []topologyRoute `json:"routes"`
	} `json:"data"`
}

type topologyRoute struct {
	ShortName string            `json:"shortName"`
	Patterns  []topologyPattern `json:"patterns"`
}

type topologyPattern struct {
	Headsign    string `json:"headsign"`
	DirectionID int    `json:"directionId"`
}

func (r *Resolver) fetch(ctx context.Context) (RouteDestinationMap, error) {
	begin := time.Now()
	form := url.Values{}
	form.Set("query", "{routes{shortName patterns{headsign directionId}}}")

	body, err := r.client.PostForm(ctx, r.uri.String(), form)
	if err != nil {
		return nil, err
	}

	payload := &topologyResponse{}
	if err = json.Unmarshal(body, payload); err != nil {
		return nil, errors.Wrap(err, "invalid topology payload")
	}

	routes := buildRouteDestinationMap(payload)
	TopologyLoadingDuration.Observe(time.Since(begin).Seconds())
	return routes, nil
}

func buildRouteDestinationMap(payload *topologyResponse) RouteDestinationMap {
	routes := make(RouteDestinationMap)
	for _, route := range payload.Data.Routes {
		if route.ShortName == "" {
			continue
		}
		routeDestinations, ok := routes[route.ShortName]
		if !ok {
			routeDestinations = &RouteDestinations{
				Destinations: map[string]bool{},
				Directions:   map[int][]string{},
			}
			routes[route.ShortName] = routeDestinations
		}
		for _, pattern := range route.Patterns {
			if pattern.Headsign == "" {
				continue
			}
			routeDestinations.Directions[pattern.DirectionID] =
				append(routeDestinations.Directions[pattern.DirectionID], pattern.Headsign)
			routeDestinations.Destinations[pattern.Headsign] = true
		}
	}
	return routes
}
