package vehicles

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Bus is the canonical output record served to every downstream consumer.
type Bus struct {
	ID             string  `json:"id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	RouteShortName string  `json:"routeShortName"`
	RouteLongName  string  `json:"routeLongName"`
	Heading        float64 `json:"heading"`
	Speed          float64 `json:"speed"`
	LastUpdated    string  `json:"lastUpdated"`
	VehicleNumber  string  `json:"vehicleNumber"`
	TripID         string  `json:"tripId"`
}

// BusesResponse defines the structure returned by the /buses endpoint.
// Stale marks data served from the fallback cache after a failed refresh;
// consumers should flag its age, not treat it as an error.
type BusesResponse struct {
	Buses []Bus  `json:"buses"`
	Stale bool   `json:"stale,omitempty"`
	Error string `json:"error,omitempty"`
}

func AddBusesEntryPoint(r *gin.Engine, context IBusFeed) {
	if r == nil {
		r = gin.New()
	}
	r.GET("/buses", BusesHandler(context))
}

func BusesHandler(context IBusFeed) gin.HandlerFunc {
	return func(c *gin.Context) {
		testRoutes := parseTestRoutes(c.Query("debug_routes"))
		buses, stale, err := context.GetBuses(c.Request.Context(), testRoutes)
		if err != nil {
			c.JSON(http.StatusInternalServerError, BusesResponse{Buses: []Bus{}, Error: err.Error()})
			return
		}
		if buses == nil {
			buses = []Bus{}
		}
		c.JSON(http.StatusOK, BusesResponse{Buses: buses, Stale: stale})
	}
}

// parseTestRoutes reads the comma-separated debug_routes parameter used to
// inject synthetic vehicles during development.
func parseTestRoutes(raw string) []string {
	if raw == "" {
		return nil
	}
	routes := make([]string, 0)
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			routes = append(routes, name)
		}
	}
	return routes
}
