package main

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/urbanplatform/busfeed/api"
	"github.com/urbanplatform/busfeed/internal/connectors"
	"github.com/urbanplatform/busfeed/internal/manager"
	"github.com/urbanplatform/busfeed/internal/topology"
	"github.com/urbanplatform/busfeed/internal/upstream"
	"github.com/urbanplatform/busfeed/internal/vehicles"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	VehiclesURIStr  string `mapstructure:"vehicles-uri"`
	VehiclesURI     url.URL
	VehiclesToken   string        `mapstructure:"vehicles-token"`
	VehiclesTimeout time.Duration `mapstructure:"vehicles-timeout"`
	VehiclesRetries int           `mapstructure:"vehicles-retries"`

	TopologyURIStr  string `mapstructure:"topology-uri"`
	TopologyURI     url.URL
	TopologyTimeout time.Duration `mapstructure:"topology-timeout"`
	TopologyRefresh time.Duration `mapstructure:"topology-refresh"`

	StaleThreshold time.Duration `mapstructure:"stale-threshold"`
	FeedType       string        `mapstructure:"feed-type"`

	LogLevel string `mapstructure:"log-level"`
	JSONLog  bool   `mapstructure:"json-log"`
}

func GetConfig() (Config, error) {
	pflag.String("vehicles-uri", "",
		"format: [scheme:][//[userinfo@]host][/]path \nbroker entity endpoint publishing live vehicles")
	pflag.String("vehicles-token", "", "token for the urban-data broker")
	pflag.Duration("vehicles-timeout", upstream.DefaultTimeout, "timeout of one vehicle fetch attempt")
	pflag.Int("vehicles-retries", upstream.DefaultMaxAttempts, "number of attempts against the broker before giving up")

	pflag.String("topology-uri", "", "format: [scheme:][//[userinfo@]host][/]path \ntrip-planning query endpoint")
	pflag.Duration("topology-timeout", 15*time.Second, "timeout of one topology fetch attempt")
	pflag.Duration("topology-refresh", topology.DefaultTTL, "time between refresh of route topology")

	pflag.Duration("stale-threshold", vehicles.DefaultStaleThreshold,
		"maximum age of cached vehicles served after a failed refresh")
	pflag.String("feed-type", string(connectors.Connector_URBAN_PLATFORM), "feed type to load vehicle data source")

	pflag.Bool("json-log", false, "enable json logging")
	pflag.String("log-level", "debug", "log level: debug, info, warn, error")
	pflag.Parse()

	var config Config
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return config, errors.Wrap(err, "Impossible to parse flags")
	}
	viper.SetEnvPrefix("BUSFEED")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := viper.Unmarshal(&config); err != nil {
		return config, errors.Wrap(err, "Unmarshalling of flag failed")
	}

	if config.VehiclesURIStr == "" {
		return config, errors.New("no vehicle data source provided. Please provide vehicles-uri")
	}

	for configURIStr, configURI := range map[string]*url.URL{
		config.VehiclesURIStr: &config.VehiclesURI,
		config.TopologyURIStr: &config.TopologyURI,
	} {
		if url, err := url.Parse(configURIStr); err != nil {
			logrus.Errorf("Unable to parse data url: %s", configURIStr)
		} else {
			*configURI = *url
		}
	}

	return config, nil
}

func main() {
	config, err := GetConfig()
	if err != nil {
		logrus.Fatalf("Impossible to load data at startup: %s", err)
	}

	initLog(config.JSONLog, config.LogLevel)
	manager := &manager.DataManager{}

	// create API router
	router := api.SetupRouter(manager, nil)

	// With buses
	Buses(manager, &config, router)

	// start router
	err = router.Run()
	if err != nil {
		logrus.Fatalf("Impossible to start gin: %s", err)
	}
}

func Buses(manager *manager.DataManager, config *Config, router *gin.Engine) {
	if len(config.VehiclesURI.String()) == 0 {
		logrus.Debug("Buses is disabled")
		return
	}

	busesContext, err := vehicles.BusFeedFactory(config.FeedType)
	if err != nil {
		logrus.Error(err)
		return
	}

	manager.SetBusesContext(busesContext)

	busesContext.InitContext(config.VehiclesURI, config.VehiclesToken, config.VehiclesTimeout,
		config.VehiclesRetries, config.TopologyURI, config.TopologyTimeout, config.TopologyRefresh,
		config.StaleThreshold)
	vehicles.AddBusesEntryPoint(router, busesContext)
}

func initLog(jsonLog bool, logLevel string) {
	if jsonLog {
		// Log as JSON instead of the default ASCII formatter.
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)
}
