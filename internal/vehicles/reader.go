package vehicles

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var validate = validator.New()

// ParseVehicleEntities decodes the broker payload. The whole batch is first
// held to the full entity schema; when any element violates it the batch is
// not discarded but filtered down to the elements that still carry an id and
// a location value. Availability wins over strictness here: one malformed
// entity must not blank the map.
func ParseVehicleEntities(body []byte) ([]RawVehicleEntity, error) {
	var entities []RawVehicleEntity
	if err := json.Unmarshal(body, &entities); err == nil {
		if err = validateEntities(entities); err == nil {
			return entities, nil
		}
	}
	return filterRawEntities(body)
}

func validateEntities(entities []RawVehicleEntity) error {
	for i := range entities {
		if err := validate.Struct(&entities[i]); err != nil {
			return err
		}
	}
	return nil
}

func filterRawEntities(body []byte) ([]RawVehicleEntity, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err != nil {
		return nil, errors.Wrap(err, "vehicle payload is not a list")
	}

	kept := make([]RawVehicleEntity, 0, len(elements))
	violations := 0
	for _, element := range elements {
		var entity RawVehicleEntity
		if err := json.Unmarshal(element, &entity); err != nil {
			violations++
			continue
		}
		if entity.ID == "" || entity.Location == nil || !entity.Location.present {
			violations++
			continue
		}
		kept = append(kept, entity)
	}

	logrus.Warnf("Vehicle batch failed strict validation, keeping %d of %d entities (%d shape violations)",
		len(kept), len(elements), violations)
	return kept, nil
}
