// Package mqtt publishes labstation telemetry over MQTT.
//
// The client wraps paho.mqtt.golang with connection management, a Last
// Will and Testament for offline detection, automatic reconnection with
// subscription restoration, and topic builders for the labstation
// hierarchy:
//
//	labstation/station/{component}/{parameter}  parameter updates (retained)
//	labstation/acquisition/{instrument}         acquisition samples
//	labstation/system/status                    online/offline status (retained)
//
// The broker is optional: when mqtt.enabled is false in config.yaml the
// station runs without publishing anything.
package mqtt
