package vehicles

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/urbanplatform/busfeed/internal/connectors"
)

// This module declares the interface implemented by the bus feed contexts
// and creates them according to their source type.

type IBusFeed interface {
	InitContext(brokerURI url.URL, brokerToken string, brokerTimeout time.Duration,
		brokerMaxAttempts int, topologyURI url.URL, topologyTimeout, topologyRefresh,
		staleThreshold time.Duration)

	GetBuses(ctx context.Context, testRoutes []string) (buses []Bus, stale bool, e error)

	GetLastBusesDataUpdate() time.Time
}

// Pattern factory bus feed
func BusFeedFactory(feedType string) (IBusFeed, error) {
	if feedType == string(connectors.Connector_URBAN_PLATFORM) {
		return &BusesContext{}, nil
	}
	return nil, fmt.Errorf("wrong bus feed type passed")
}
