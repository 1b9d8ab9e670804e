package utils

import (
	"time"

	"github.com/foodshare/pickup-tracker/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate (empty disables TLS)
	} `yaml:"mqtt"`

	Identity struct {
		ParticipantFile string `yaml:"participant_file"` // Path to the participant identity file
	} `yaml:"identity"`

	Session struct {
		ID            string `yaml:"id"`             // Coordination session (hand-off) identifier
		PickupAddress string `yaml:"pickup_address"` // Free-text pickup location
	} `yaml:"session"`

	Store struct {
		DSN          string `yaml:"dsn"`           // PostgreSQL connection string
		EnsureSchema bool   `yaml:"ensure_schema"` // Create the samples table on startup
		NotifyQOS    int    `yaml:"notify_qos"`    // MQTT QoS level for change notifications
	} `yaml:"store"`

	Google struct {
		MapsAPIKey string `yaml:"maps_api_key"` // Google maps API Key (geocoding + geolocation fallback)
	} `yaml:"google"`

	Services struct {
		Tracker struct {
			Enabled           bool          `yaml:"enabled"`          // Enable/disable the location publisher
			PublishInterval   time.Duration `yaml:"publish_interval"` // Minimum time between sample writes
			HighAccuracy      bool          `yaml:"high_accuracy"`    // Request best available accuracy
			WatchTimeout      time.Duration `yaml:"watch_timeout"`    // Reading considered stale after this silence
			MaximumFixAge     time.Duration `yaml:"maximum_fix_age"`  // Reuse a cached fix younger than this
			SensorBased       bool          `yaml:"sensor_based"`     // Use GPS sensor or geolocation api
			GPSDevicePort     string        `yaml:"gps_device_port"`  // UNIX port where the GPS sensor is mounted
			GPSDeviceBaudRate int           `yaml:"gps_baud_rate"`    // The Baud rate for GPS sensor
			ModemIndex        int           `yaml:"modem_index"`      // mmcli modem index for cell tower lookup
		} `yaml:"tracker"`

		Heartbeat struct {
			Topic    string        `yaml:"topic"`    // MQTT topic for heartbeat service
			Enabled  bool          `yaml:"enabled"`  // Enable/disable heartbeat service
			Interval time.Duration `yaml:"interval"` // Interval between heartbeats
			QOS      int           `yaml:"qos"`      // MQTT QoS level for heartbeat messages
		} `yaml:"heartbeat"`

		Presence struct {
			Enabled    bool          `yaml:"enabled"`     // Enable/disable the presence view
			QOS        int           `yaml:"qos"`         // MQTT QoS level for the change subscription
			StaleAfter time.Duration `yaml:"stale_after"` // Hide samples older than this (0 disables)
			FitPadding float64       `yaml:"fit_padding"` // Viewport padding as a fraction of the spread
			MaxZoom    float64       `yaml:"max_zoom"`    // Viewport zoom ceiling
		} `yaml:"presence"`

		Web struct {
			Enabled    bool   `yaml:"enabled"`     // Enable/disable the HTTP/websocket surface
			ListenAddr string `yaml:"listen_addr"` // Address for the presence endpoints
		} `yaml:"web"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file.
// It returns a pointer to the Config struct and an error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	// Use the ReadYamlFile method from fileClient
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
