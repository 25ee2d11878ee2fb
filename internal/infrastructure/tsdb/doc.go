// Package tsdb writes points to an InfluxDB 1.x compatible HTTP API.
//
// Batches are encoded as line protocol and POSTed to /write, optionally
// gzip-compressed. Administrative statements (CREATE/DROP DATABASE) go to
// /query, and /ping serves as the health check. VictoriaMetrics accepts the
// same /write endpoint.
//
// # Usage
//
//	client, err := tsdb.New(cfg.TSDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Ping(ctx); err != nil {
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
// Writes are synchronous. A rejected batch returns ErrWriteFailed with the
// server's message; a partial write counts as a rejected batch.
package tsdb
