package mqtt

// Topic namespace. Hearthside claims everything under this prefix.
const topicPrefix = "hearthside"

// Topics builds the topic strings used across the system. A zero value is
// ready to use:
//
//	mqtt.Topics{}.DeviceState("dev-lr-ac")
//
// Layout:
//
//	hearthside/system/status          retained service online/offline
//	hearthside/device/<id>/state      retained device state snapshots
//	hearthside/energy/snapshot        retained latest energy snapshot
//	hearthside/command/request        remote command submissions
//	hearthside/command/result         command outcomes
type Topics struct{}

// SystemStatus is the retained service status topic, also used for the
// Last Will message.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// DeviceState is the retained state topic for one device.
func (Topics) DeviceState(deviceID string) string {
	return topicPrefix + "/device/" + deviceID + "/state"
}

// AllDeviceStates matches every device state topic.
func (Topics) AllDeviceStates() string {
	return topicPrefix + "/device/+/state"
}

// EnergySnapshot is the retained topic carrying the latest energy snapshot.
func (Topics) EnergySnapshot() string {
	return topicPrefix + "/energy/snapshot"
}

// CommandRequest is where remote clients submit caregiver commands.
func (Topics) CommandRequest() string {
	return topicPrefix + "/command/request"
}

// CommandResult is where command outcomes are published.
func (Topics) CommandResult() string {
	return topicPrefix + "/command/result"
}
