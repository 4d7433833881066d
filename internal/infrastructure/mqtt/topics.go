package mqtt

import "fmt"

// Topic prefixes for labstation MQTT traffic.
//
// Parameter updates use the flat scheme:
// labstation/station/{component}/{parameter}
const (
	// TopicPrefix is the base for all labstation topics.
	TopicPrefix = "labstation"

	// TopicPrefixStation is the base for parameter state topics.
	TopicPrefixStation = "labstation/station"

	// TopicPrefixAcquisition is the base for acquisition sample topics.
	TopicPrefixAcquisition = "labstation/acquisition"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "labstation/system"
)

// Topics provides builders for labstation MQTT topics. Using these
// helpers keeps topic naming consistent across publishers and
// subscribers.
type Topics struct{}

// ParameterState returns the topic for a parameter update.
//
// Example: labstation/station/smu1/voltage
func (Topics) ParameterState(component, parameter string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixStation, component, parameter)
}

// AllParameterStates returns the wildcard pattern matching every
// parameter update.
func (Topics) AllParameterStates() string {
	return TopicPrefixStation + "/+/+"
}

// Acquisition returns the topic for acquisition samples from an
// instrument.
//
// Example: labstation/acquisition/b1500
func (Topics) Acquisition(instrument string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixAcquisition, instrument)
}

// SystemStatus returns the online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
