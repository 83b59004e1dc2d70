package topics

import "strings"

// State returns the retained single-source-of-truth state topic.
func State(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/state"
}

// Availability returns the online/offline liveness topic.
func Availability(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/availability"
}

// Command returns the inbound command topic for the given suffix.
func Command(prefix, suffix string) string {
	return strings.TrimSuffix(prefix, "/") + "/cmd/" + suffix
}

// CommandWildcard returns the subscription pattern covering all commands.
func CommandWildcard(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/cmd/#"
}

// CommandSuffix extracts the command suffix from an inbound topic. The second
// return value is false when the topic is not under the command namespace.
func CommandSuffix(prefix, topic string) (string, bool) {
	base := strings.TrimSuffix(prefix, "/") + "/cmd/"
	if !strings.HasPrefix(topic, base) {
		return "", false
	}
	return strings.TrimPrefix(topic, base), true
}

// DiscoveryConfig returns the retained discovery topic for one entity.
func DiscoveryConfig(discoveryPrefix, kind, deviceID, key string) string {
	return strings.TrimSuffix(discoveryPrefix, "/") + "/" + kind + "/" + deviceID + "/" + key + "/config"
}
