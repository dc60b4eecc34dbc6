package manager

import (
	"github.com/urbanplatform/busfeed/internal/vehicles"
)

// Data manager for all apis
type DataManager struct {
	busesContext vehicles.IBusFeed
}

func (d *DataManager) SetBusesContext(busesContext vehicles.IBusFeed) {
	d.busesContext = busesContext
}

func (d *DataManager) GetBusesContext() vehicles.IBusFeed {
	return d.busesContext
}
