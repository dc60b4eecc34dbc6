package vehicles

// Broker entities are NGSI-style records with no stable schema: any
// attribute may arrive either as a bare scalar or wrapped as
// {"value": <scalar>}, sometimes nested. The Flex* types accept every shape
// observed so far and unwrap to a plain value.

import (
	"encoding/json"
	"strconv"
)

// FlexString decodes "x", 3 or {"value": "x"} into "x".
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = FlexString(unwrapString(raw))
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// FlexFloat decodes 12.5, "12.5" or {"value": 12.5} into 12.5.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FlexFloat(unwrapFloat(raw))
	return nil
}

// FlexStrings decodes ["a"] or {"value": ["a"]} into ["a"].
type FlexStrings []string

func (l *FlexStrings) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = unwrapStrings(raw)
	return nil
}

// Location accepts {"coordinates": [lon, lat]}, a GeoJSON point, or either
// of those wrapped under "value". present records whether the field carried
// any payload at all, which the permissive reader tier needs even when the
// coordinates themselves are unusable.
type Location struct {
	Coordinates []float64 `validate:"len=2"`
	present     bool
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.present = raw != nil
	l.Coordinates = unwrapCoordinates(raw)
	return nil
}

func unwrapString(value interface{}) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case map[string]interface{}:
		if inner, ok := typed["value"]; ok {
			return unwrapString(inner)
		}
	}
	return ""
}

func unwrapFloat(value interface{}) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)
		if err == nil {
			return parsed
		}
	case map[string]interface{}:
		if inner, ok := typed["value"]; ok {
			return unwrapFloat(inner)
		}
	}
	return 0
}

func unwrapStrings(value interface{}) []string {
	switch typed := value.(type) {
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			if text := unwrapString(item); text != "" {
				items = append(items, text)
			}
		}
		return items
	case map[string]interface{}:
		if inner, ok := typed["value"]; ok {
			return unwrapStrings(inner)
		}
	}
	return nil
}

func unwrapCoordinates(value interface{}) []float64 {
	typed, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	if rawCoordinates, ok := typed["coordinates"].([]interface{}); ok {
		coordinates := make([]float64, 0, len(rawCoordinates))
		for _, coordinate := range rawCoordinates {
			number, ok := coordinate.(float64)
			if !ok {
				return nil
			}
			coordinates = append(coordinates, number)
		}
		return coordinates
	}
	if inner, ok := typed["value"]; ok {
		return unwrapCoordinates(inner)
	}
	return nil
}

// RawVehicleEntity is one telemetry record as published by the broker.
// Coordinates are ordered longitude first, latitude second.
type RawVehicleEntity struct {
	ID             string      `json:"id" validate:"required"`
	Location       *Location   `json:"location" validate:"required"`
	RouteShortName FlexString  `json:"routeShortName"`
	Route          FlexString  `json:"route"`
	LineID         FlexString  `json:"lineId"`
	Line           FlexString  `json:"line"`
	Destination    FlexString  `json:"destination"`
	Headsign       FlexString  `json:"headsign"`
	TripHeadsign   FlexString  `json:"tripHeadsign"`
	Plate          FlexString  `json:"vehiclePlateIdentifier"`
	FleetNumber    FlexString  `json:"fleetVehicleId"`
	Name           FlexString  `json:"name"`
	Heading        FlexFloat   `json:"heading"`
	Bearing        FlexFloat   `json:"bearing"`
	Speed          FlexFloat   `json:"speed"`
	DateModified   FlexString  `json:"dateModified"`
	Timestamp      FlexString  `json:"timestamp"`
	Annotations    FlexStrings `json:"annotations"`
}
