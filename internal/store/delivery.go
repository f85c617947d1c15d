package store

// WebhookDelivery is one queued webhook attempt, fed to the delivery worker.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	HuntID         string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}
