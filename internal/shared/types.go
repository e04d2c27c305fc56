package shared

// Task types dispatched through asynq. The "<domain>:<action>" convention
// keeps queue dashboards readable.
const (
	TypeDeactivateExpiredPromotions = "promotion:deactivate_expired"
)

// Queue names with their worker priorities configured in cmd/worker.
const (
	QueueDefault   = "default"
	QueuePromotion = "promotion"
)

// DeactivateExpiredPromotionsPayload is the (empty) payload of the scheduled
// promotion hygiene job.
type DeactivateExpiredPromotionsPayload struct{}
