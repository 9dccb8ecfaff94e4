package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's standard library.
// Supports both ${VAR} and $VAR syntax (standard shell-style).
//
// Examples:
//   - ${OPERA_MQTT_PASSWORD} → value of OPERA_MQTT_PASSWORD environment variable
//   - $KAFKA_BROKERS → value of KAFKA_BROKERS environment variable
//   - ${MQTT_HOST}:${MQTT_PORT} → host:port with both variables expanded
//
// Missing variables expand to empty string. Validation should catch required fields that are empty.
func ExpandEnv(data []byte) []byte {
	expanded := os.ExpandEnv(string(data))
	return []byte(expanded)
}
