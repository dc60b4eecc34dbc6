package vehicles

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanplatform/busfeed/internal/topology"
)

var testNow = time.Date(2023, time.June, 14, 9, 30, 0, 0, time.UTC)

func portoRoutes() topology.RouteDestinationMap {
	return topology.RouteDestinationMap{
		"205": {
			Destinations: map[string]bool{"Campanhã": true, "Castelo do Queijo": true},
			Directions: map[int][]string{
				0: {"Campanhã"},
				1: {"Castelo do Queijo"},
			},
		},
	}
}

func entityFromJSON(t *testing.T, payload string) *RawVehicleEntity {
	var entity RawVehicleEntity
	require.Nil(t, json.Unmarshal([]byte(payload), &entity))
	return &entity
}

func TestNormalizeResolvesRouteFromIDSegments(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	entity := entityFromJSON(t, `{
		"id": "urn:x:stcp:Vehicle:205:3245",
		"location": {"value": {"coordinates": [-8.6, 41.15]}},
		"annotations": {"value": ["stcp:sentido:1", "stcp:nr_viagem:77"]}
	}`)

	bus, ok := NormalizeVehicle(entity, portoRoutes(), testNow)
	require.True(ok)
	assert.Equal("205", bus.RouteShortName)
	assert.Equal("Castelo do Queijo", bus.RouteLongName)
	assert.Equal("77", bus.TripID)
	assert.Equal("3245", bus.VehicleNumber)
	assert.Equal(41.15, bus.Latitude)
	assert.Equal(-8.6, bus.Longitude)
}

func TestNormalizeResolvesRouteFromFleetIdentifier(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	entity := entityFromJSON(t, `{
		"id": "vehicle-without-usable-id",
		"location": {"coordinates": [-8.6, 41.15]},
		"name": {"value": "STCP 3245"}
	}`)

	bus, ok := NormalizeVehicle(entity, portoRoutes(), testNow)
	require.True(ok)
	assert.Equal("3245", bus.RouteShortName)
	assert.Equal("3245", bus.VehicleNumber)
}

func TestNormalizeUnresolvableRouteIsUnknown(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	entity := entityFromJSON(t, `{
		"id": "opaque-identifier",
		"location": {"coordinates": [-8.6, 41.15]}
	}`)

	bus, ok := NormalizeVehicle(entity, portoRoutes(), testNow)
	require.True(ok)
	assert.Equal(UnknownRoute, bus.RouteShortName)
	assert.Equal("", bus.RouteLongName)
}

func TestNormalizeExplicitFieldsWinOverFallbacks(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	entity := entityFromJSON(t, `{
		"id": "urn:x:stcp:Vehicle:205:3245",
		"location": {"coordinates": [-8.6, 41.15]},
		"routeShortName": {"value": "701"},
		"destination": "Codiceira",
		"vehiclePlateIdentifier": "AB-12-CD"
	}`)

	bus, ok := NormalizeVehicle(entity, portoRoutes(), testNow)
	require.True(ok)
	assert.Equal("701", bus.RouteShortName)
	assert.Equal("Codiceira", bus.RouteLongName)
	assert.Equal("AB-12-CD", bus.VehicleNumber)
}

func TestNormalizeHeadsignFallsBackToDirectionZero(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	// Direction 7 is not in the map for route 205.
	entity := entityFromJSON(t, `{
		"id": "urn:x:stcp:Vehicle:205:3245",
		"location": {"coordinates": [-8.6, 41.15]},
		"annotations": ["stcp:sentido:7"]
	}`)

	bus, ok := NormalizeVehicle(entity, portoRoutes(), testNow)
	require.True(ok)
	assert.Equal("Campanhã", bus.RouteLongName)

	// And without any direction annotation at all.
	entity = entityFromJSON(t, `{
		"id": "urn:x:stcp:Vehicle:205:3245",
		"location": {"coordinates": [-8.6, 41.15]}
	}`)
	bus, ok = NormalizeVehicle(entity, portoRoutes(), testNow)
	require.True(ok)
	assert.Equal("Campanhã", bus.RouteLongName)
}

func TestNormalizeCleansVehicleNumber(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	entity := entityFromJSON(t, `{
		"id": "v1",
		"location": {"coordinates": [-8.6, 41.15]},
		"line": "205",
		"fleetVehicleId": "STCP 3245"
	}`)

	bus, ok := NormalizeVehicle(entity, nil, testNow)
	require.True(ok)
	assert.Equal("3245", bus.VehicleNumber)
}

func TestNormalizeHeadingAndSpeedDefaults(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	entity := entityFromJSON(t, `{
		"id": "v1",
		"location": {"coordinates": [-8.6, 41.15]},
		"line": "205",
		"bearing": {"value": 182},
		"speed": -3
	}`)

	bus, ok := NormalizeVehicle(entity, nil, testNow)
	require.True(ok)
	assert.Equal(182.0, bus.Heading)
	assert.Equal(0.0, bus.Speed)

	entity = entityFromJSON(t, `{"id": "v2", "location": {"coordinates": [-8.6, 41.15]}, "line": "205"}`)
	bus, ok = NormalizeVehicle(entity, nil, testNow)
	require.True(ok)
	assert.Equal(0.0, bus.Heading)
	assert.Equal(0.0, bus.Speed)
}

func TestNormalizeTimestampFallsBackToWallClock(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	entity := entityFromJSON(t, `{
		"id": "v1",
		"location": {"coordinates": [-8.6, 41.15]},
		"dateModified": {"value": "2023-06-14T09:00:00Z"}
	}`)
	bus, ok := NormalizeVehicle(entity, nil, testNow)
	require.True(ok)
	assert.Equal("2023-06-14T09:00:00Z", bus.LastUpdated)

	entity = entityFromJSON(t, `{"id": "v2", "location": {"coordinates": [-8.6, 41.15]}}`)
	bus, ok = NormalizeVehicle(entity, nil, testNow)
	require.True(ok)
	assert.Equal(testNow.Format(time.RFC3339), bus.LastUpdated)
}

func TestNormalizeDropsUnusableCoordinates(t *testing.T) {
	require := require.New(t)

	entity := entityFromJSON(t, `{"id": "v1", "location": {"value": {"address": "somewhere"}}}`)
	_, ok := NormalizeVehicle(entity, nil, testNow)
	require.False(ok)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	entity := entityFromJSON(t, `{
		"id": "urn:x:stcp:Vehicle:205:3245",
		"location": {"value": {"coordinates": [-8.6, 41.15]}},
		"annotations": {"value": ["stcp:sentido:1", "stcp:nr_viagem:77"]},
		"dateModified": "2023-06-14T09:00:00Z"
	}`)

	routes := portoRoutes()
	first, ok := NormalizeVehicle(entity, routes, testNow)
	require.True(ok)
	second, ok := NormalizeVehicle(entity, routes, testNow)
	require.True(ok)
	assert.Equal(first, second)
}
