package vehicles

// Field normalization. The broker encodes route and destination identifiers
// in at least six ad-hoc conventions, so every Bus field is resolved through
// an ordered list of extractors: the first non-empty result wins. The whole
// cascade is pure, the same entity and topology map always produce the same
// Bus.

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/urbanplatform/busfeed/internal/topology"
)

// UnknownRoute is the sentinel used when every route extraction strategy
// fails. Consumers rely on it never being empty.
const UnknownRoute = "Unknown"

type extractor func(entity *RawVehicleEntity) string

func firstNonEmpty(entity *RawVehicleEntity, extractors []extractor) string {
	for _, extract := range extractors {
		if value := extract(entity); value != "" {
			return value
		}
	}
	return ""
}

var fleetRoutePattern = regexp.MustCompile(`^STCP\s+(\d+)$`)

var routeShortNameExtractors = []extractor{
	func(e *RawVehicleEntity) string { return e.RouteShortName.String() },
	func(e *RawVehicleEntity) string { return e.Route.String() },
	func(e *RawVehicleEntity) string { return e.LineID.String() },
	func(e *RawVehicleEntity) string { return e.Line.String() },
	routeFromFleetIdentifier,
	routeFromIDSegments,
}

var destinationExtractors = []extractor{
	func(e *RawVehicleEntity) string { return e.Destination.String() },
	func(e *RawVehicleEntity) string { return e.Headsign.String() },
	func(e *RawVehicleEntity) string { return e.TripHeadsign.String() },
}

var vehicleNumberExtractors = []extractor{
	func(e *RawVehicleEntity) string { return e.Plate.String() },
	func(e *RawVehicleEntity) string { return e.FleetNumber.String() },
	func(e *RawVehicleEntity) string { return e.Name.String() },
	vehicleNumberFromIDSegments,
}

var timestampExtractors = []extractor{
	func(e *RawVehicleEntity) string { return e.DateModified.String() },
	func(e *RawVehicleEntity) string { return e.Timestamp.String() },
}

// routeFromFleetIdentifier recovers the route from vehicle identifiers of
// the "STCP <digits>" shape.
func routeFromFleetIdentifier(entity *RawVehicleEntity) string {
	for _, candidate := range []string{entity.Plate.String(), entity.FleetNumber.String(), entity.Name.String()} {
		if match := fleetRoutePattern.FindStringSubmatch(candidate); match != nil {
			return match[1]
		}
	}
	return ""
}

var idBoilerplate = map[string]bool{
	"urn":     true,
	"x":       true,
	"ngsi":    true,
	"ngsi-ld": true,
	"vehicle": true,
	"stcp":    true,
	"porto":   true,
}

// routeFromIDSegments mines colon-delimited ids like
// "urn:x:stcp:Vehicle:205:3245": the route is usually the first short
// alphanumeric segment that is not boilerplate, with the second-to-last
// segment as the fixed-position fallback.
func routeFromIDSegments(entity *RawVehicleEntity) string {
	segments := strings.Split(entity.ID, ":")
	if len(segments) < 2 {
		return ""
	}
	for _, segment := range segments {
		if segment == "" || idBoilerplate[strings.ToLower(segment)] {
			continue
		}
		if len(segment) <= 5 && isAlphanumeric(segment) {
			return segment
		}
	}
	return segments[len(segments)-2]
}

func vehicleNumberFromIDSegments(entity *RawVehicleEntity) string {
	segments := strings.Split(entity.ID, ":")
	if len(segments) < 2 {
		return ""
	}
	return segments[len(segments)-1]
}

// parseAnnotations scans the free-form annotation list for the
// "<operator>:sentido:<int>" direction marker and the
// "<operator>:nr_viagem:<string>" trip marker.
func parseAnnotations(annotations []string) (direction *int, tripID string) {
	for _, annotation := range annotations {
		segments := strings.Split(annotation, ":")
		for i := 0; i+1 < len(segments); i++ {
			switch segments[i] {
			case "sentido":
				if direction == nil {
					if value, err := strconv.Atoi(segments[i+1]); err == nil {
						direction = &value
					}
				}
			case "nr_viagem":
				if tripID == "" {
					tripID = segments[i+1]
				}
			}
		}
	}
	return direction, tripID
}

// cleanVehicleNumber keeps only the trailing numeric token of values like
// "STCP 3245". Operators often prefix the fleet number with letters or their
// own name; a purely numeric last token is the number itself. Known-lossy
// heuristic, kept as observed in production data.
func cleanVehicleNumber(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return value
	}
	last := fields[len(fields)-1]
	if isDigits(last) {
		return last
	}
	return value
}

func isAlphanumeric(value string) bool {
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return value != ""
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}

// NormalizeVehicle resolves every Bus field of one validated entity against
// the resolved topology. Entities whose coordinate pair cannot be unwrapped
// are dropped here (second return false).
func NormalizeVehicle(entity *RawVehicleEntity, routes topology.RouteDestinationMap, now time.Time) (Bus, bool) {
	if entity.ID == "" || entity.Location == nil || len(entity.Location.Coordinates) != 2 {
		return Bus{}, false
	}

	direction, tripID := parseAnnotations(entity.Annotations)

	routeShortName := firstNonEmpty(entity, routeShortNameExtractors)
	if routeShortName == "" {
		routeShortName = UnknownRoute
	}

	routeLongName := firstNonEmpty(entity, destinationExtractors)
	if routeLongName == "" {
		routeLongName = routes.FirstHeadsign(routeShortName, direction)
	}

	heading := float64(entity.Heading)
	if heading == 0 {
		heading = float64(entity.Bearing)
	}
	speed := float64(entity.Speed)
	if speed < 0 {
		speed = 0
	}

	lastUpdated := firstNonEmpty(entity, timestampExtractors)
	if lastUpdated == "" {
		lastUpdated = now.Format(time.RFC3339)
	}

	return Bus{
		ID:             entity.ID,
		Longitude:      entity.Location.Coordinates[0],
		Latitude:       entity.Location.Coordinates[1],
		RouteShortName: routeShortName,
		RouteLongName:  routeLongName,
		Heading:        heading,
		Speed:          speed,
		LastUpdated:    lastUpdated,
		VehicleNumber:  cleanVehicleNumber(firstNonEmpty(entity, vehicleNumberExtractors)),
		TripID:         tripID,
	}, true
}
