// Package messages defines the MQTT wire contract shared with the pod
// firmware: topic layout and command payload shapes.
package messages

import "strings"

// Class distinguishes the two inbound message shapes a pod publishes.
type Class string

const (
	ClassSensorData Class = "sensor_data"
	ClassProbeData  Class = "probe_data"
)

// Inbound topic: "<pod>/sensor_data" or "<pod>/probe_data".
func DataTopic(podName string, class Class) string {
	return podName + "/" + string(class)
}

// Outbound command topics.
func NewCropTopic(podName string) string {
	return podName + "/commands/new_crop"
}

func ChangeValueTopic(podName, sensorKey string) string {
	return podName + "/commands/change_value/" + sensorKey
}

func HarvestTopic(podName string) string {
	return podName + "/commands/harvest"
}

// ParseDataTopic splits an inbound topic into pod name and message class.
// Returns ok=false for topics outside the data contract.
func ParseDataTopic(topic string) (podName string, class Class, ok bool) {
	i := strings.LastIndex(topic, "/")
	if i <= 0 {
		return "", "", false
	}
	pod, suffix := topic[:i], topic[i+1:]
	switch Class(suffix) {
	case ClassSensorData, ClassProbeData:
		return pod, Class(suffix), true
	}
	return "", "", false
}
