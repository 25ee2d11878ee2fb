// Package influxdb writes points to InfluxDB 2.x.
//
// It wraps the official influxdb-client-go v2 library: the blocking write
// API for batches, the buckets and organizations APIs for recreating the
// target bucket, and sign-in for username/password authentication.
//
// # Usage
//
//	client, err := influxdb.New(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Authenticate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	err = client.WritePoints(ctx, points)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
//
// # Error Handling
//
// Writes are synchronous; a rejected batch returns ErrWriteFailed wrapping
// the server's error.
package influxdb
