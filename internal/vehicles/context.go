package vehicles

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/urbanplatform/busfeed/internal/connectors"
	"github.com/urbanplatform/busfeed/internal/topology"
	"github.com/urbanplatform/busfeed/internal/upstream"
)

const (
	DefaultStaleThreshold = 5 * time.Minute

	vehicleEntityType = "Vehicle"
	maxBrokerEntities = 1000
)

/* -------------------------------------------------------------
// Structure and pipeline to create Bus objects from the broker
------------------------------------------------------------- */
type BusesContext struct {
	client         *upstream.Client
	connector      *connectors.Connector
	resolver       *topology.Resolver
	buses          []Bus
	capturedAt     time.Time
	staleThreshold time.Duration
	mutex          sync.RWMutex
}

func (d *BusesContext) InitContext(brokerURI url.URL, brokerToken string, brokerTimeout time.Duration,
	brokerMaxAttempts int, topologyURI url.URL, topologyTimeout, topologyRefresh,
	staleThreshold time.Duration) {

	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	d.connector = connectors.NewConnector(brokerURI, brokerToken, brokerTimeout, brokerMaxAttempts)
	d.connector.SetHeader("X-Auth-Token")
	d.client = upstream.NewClient(upstream.Options{
		MaxAttempts: brokerMaxAttempts,
		Timeout:     brokerTimeout,
	})
	d.resolver = topology.NewResolver(topologyURI,
		upstream.NewClient(upstream.Options{
			MaxAttempts: brokerMaxAttempts,
			Timeout:     topologyTimeout,
		}),
		topologyRefresh)
	d.staleThreshold = staleThreshold
}

// GetBuses runs the full ingestion pipeline for one inbound request:
// resolve topology (cached), fetch raw entities (retried), validate,
// normalize, refresh the stale cache. On a broker failure the last good
// list is served instead while it is younger than the stale threshold.
func (d *BusesContext) GetBuses(ctx context.Context, testRoutes []string) ([]Bus, bool, error) {
	begin := time.Now()
	routes := d.resolver.Resolve(ctx)

	body, err := d.client.Get(ctx, d.brokerURL(), d.brokerHeader())
	if err != nil {
		return d.degrade(err)
	}

	entities, err := ParseVehicleEntities(body)
	if err != nil {
		return d.degrade(err)
	}

	now := time.Now()
	buses := make([]Bus, 0, len(entities))
	for i := range entities {
		if bus, ok := NormalizeVehicle(&entities[i], routes, now); ok {
			buses = append(buses, bus)
		}
	}
	d.updateBuses(buses)
	BusesLoadingDuration.Observe(time.Since(begin).Seconds())

	if len(testRoutes) > 0 {
		buses = append(buses, SyntheticBuses(testRoutes, routes, now)...)
	}
	return buses, false, nil
}

func (d *BusesContext) GetLastBusesDataUpdate() time.Time {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.capturedAt
}

// degrade serves the cached list after a failed refresh, as long as it is
// still below the stale threshold.
func (d *BusesContext) degrade(cause error) ([]Bus, bool, error) {
	BusesLoadingErrors.Inc()
	if buses, ok := d.cachedBuses(); ok {
		logrus.Warnf("Error while reloading vehicle data, serving stale data: %s", cause)
		return buses, true, nil
	}
	return []Bus{}, false, cause
}

func (d *BusesContext) cachedBuses() ([]Bus, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.buses == nil || time.Since(d.capturedAt) >= d.staleThreshold {
		return nil, false
	}
	return d.buses, true
}

func (d *BusesContext) updateBuses(buses []Bus) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.buses = buses
	d.capturedAt = time.Now()
}

func (d *BusesContext) brokerURL() string {
	uri := d.connector.GetUrl()
	query := uri.Query()
	query.Set("type", vehicleEntityType)
	query.Set("limit", strconv.Itoa(maxBrokerEntities))
	uri.RawQuery = query.Encode()
	return uri.String()
}

func (d *BusesContext) brokerHeader() http.Header {
	token := d.connector.GetToken()
	if token == "" {
		return nil
	}
	header := http.Header{}
	header.Set(d.connector.GetHeader(), token)
	return header
}
