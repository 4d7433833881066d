// Package influxdb records labstation measurements in InfluxDB v2.
//
// Spot samples from triggered acquisitions land in the spot_sample
// measurement tagged by instrument, channel and measurement type;
// parameter values land in the parameter measurement tagged by
// component and parameter. Writes are batched and asynchronous, with
// failures surfaced through an error callback.
//
// Integration is optional: when influxdb.enabled is false in
// config.yaml, Connect returns ErrDisabled and the station runs
// without telemetry.
package influxdb
