package kafka

// TopicPrefix namespaces every topic this backend publishes.
const TopicPrefix = "geniebazaar"

// Topic builds a namespaced topic name, e.g. Topic("order", "created")
// returns "geniebazaar.order.created".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}
