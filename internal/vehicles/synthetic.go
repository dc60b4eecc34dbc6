package vehicles

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/urbanplatform/busfeed/internal/topology"
)

// Synthetic vehicles let the map be exercised when no live traffic runs the
// requested routes. They are generated only for the routes named by the
// debug_routes query parameter and never enter the stale cache.

const (
	syntheticBaseLatitude  = 41.1579
	syntheticBaseLongitude = -8.6291
)

func SyntheticBuses(routeNames []string, routes topology.RouteDestinationMap, now time.Time) []Bus {
	buses := make([]Bus, 0, len(routeNames))
	for i, routeName := range routeNames {
		buses = append(buses, Bus{
			ID:             "synthetic:" + uuid.New().String(),
			Latitude:       syntheticBaseLatitude + float64(i)*0.001,
			Longitude:      syntheticBaseLongitude - float64(i)*0.001,
			RouteShortName: routeName,
			RouteLongName:  routes.FirstHeadsign(routeName, nil),
			Heading:        float64((i * 45) % 360),
			Speed:          30,
			LastUpdated:    now.Format(time.RFC3339),
			VehicleNumber:  fmt.Sprintf("%d", 9000+i),
		})
	}
	return buses
}
