// Package config handles loading and validating csv2influx configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables and command-line flags
//   - Validation of required fields
//   - Default value handling (the defaults of the classic csv-to-influxdb tool)
//
// Security Considerations:
//   - Passwords and tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("csv2influx.yaml", func(c *config.Config) {
//	    c.Input.Path = "data.csv"
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Target())
package config
