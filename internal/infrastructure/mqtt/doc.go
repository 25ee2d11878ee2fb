// Package mqtt publishes import run events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - A retained {prefix}/status topic backed by Last Will and Testament
//
// Events are optional. When enabled, progress and summary messages let
// dashboards and other tooling follow long imports without tailing logs.
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) when the broker is not on localhost
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Publish("csv2influx/run/progress", payload, 1, false)
package mqtt
