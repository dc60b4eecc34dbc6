package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanplatform/busfeed/internal/manager"
	"github.com/urbanplatform/busfeed/internal/vehicles"
)

func TestStatusApiExist(t *testing.T) {
	require := require.New(t)
	var manager manager.DataManager

	c, engine := gin.CreateTestContext(httptest.NewRecorder())
	SetupRouter(&manager, engine)

	c.Request = httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, c.Request)
	require.Equal(200, w.Code)
}

func TestStatusApiHasLastUpdateTime(t *testing.T) {
	startTime := time.Now()
	assert := assert.New(t)
	require := require.New(t)

	broker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "urn:x:stcp:Vehicle:205:3245",
			"location": {"coordinates": [-8.6, 41.15]}}]`))
	}))
	defer broker.Close()
	topologyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"routes": []}}`))
	}))
	defer topologyServer.Close()

	brokerURI, err := url.Parse(broker.URL)
	require.Nil(err)
	topologyURI, err := url.Parse(topologyServer.URL)
	require.Nil(err)

	busesContext, err := vehicles.BusFeedFactory("urbanplatform")
	require.Nil(err)
	busesContext.InitContext(*brokerURI, "", time.Second, 1, *topologyURI, time.Second,
		time.Hour, 5*time.Minute)

	var manager manager.DataManager
	manager.SetBusesContext(busesContext)

	c, router := gin.CreateTestContext(httptest.NewRecorder())
	vehicles.AddBusesEntryPoint(router, busesContext)
	router.GET("/status", StatusHandler(&manager))

	c.Request = httptest.NewRequest("GET", "/buses", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, c.Request)
	require.Equal(200, w.Code)

	c.Request = httptest.NewRequest("GET", "/status", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, c.Request)
	require.Equal(200, w.Code)

	var response StatusResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.Nil(err)
	assert.Equal(response.Status, "ok")
	assert.True(response.Buses.LastUpdate.After(startTime))
	assert.True(response.Buses.LastUpdate.Before(time.Now()))
}
