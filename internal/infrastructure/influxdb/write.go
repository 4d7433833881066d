package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSpotSample records one spot measurement. The write is
// non-blocking; points are batched and sent asynchronously.
//
// Measurement: spot_sample. Tags: instrument, channel, type (low
// cardinality). Fields: value, status.
func (c *Client) WriteSpotSample(instrument string, channel int, measType string, status string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"spot_sample",
		map[string]string{
			"instrument": instrument,
			"channel":    strconv.Itoa(channel),
			"type":       measType,
		},
		map[string]interface{}{
			"value":  value,
			"status": status,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteParameterValue records a station parameter value.
//
// Measurement: parameter. Tags: component, parameter. Field: value.
func (c *Client) WriteParameterValue(component, parameter string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"parameter",
		map[string]string{
			"component": component,
			"parameter": parameter,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and
// fields, for measurements the helpers do not cover.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

// WritePointWithTime writes a custom point with a specific timestamp,
// for data that is not stamped "now".
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
