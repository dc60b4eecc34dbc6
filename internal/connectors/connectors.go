package connectors

import (
	"net/url"
	"sync"
	"time"
)

type ConnectorType string

const (
	Connector_URBAN_PLATFORM ConnectorType = "urbanplatform"
)

// Connector carries the access parameters of one upstream service.
type Connector struct {
	url               url.URL
	token             string
	header            string
	connectionTimeout time.Duration
	maxAttempts       int
	mutex             sync.Mutex
}

func (d *Connector) GetUrl() url.URL {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.url
}

func (d *Connector) GetToken() string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.token
}

func (d *Connector) SetToken(token string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.token = token
}

func (d *Connector) GetHeader() string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.header
}

func (d *Connector) SetHeader(header string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.header = header
}

func (d *Connector) GetConnectionTimeout() time.Duration {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.connectionTimeout
}

func (d *Connector) GetMaxAttempts() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.maxAttempts
}

func NewConnector(
	url url.URL,
	token string,
	connectionTimeout time.Duration,
	maxAttempts int,
) *Connector {
	return &Connector{
		url:               url,
		token:             token,
		connectionTimeout: connectionTimeout,
		maxAttempts:       maxAttempts,
	}
}
