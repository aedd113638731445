package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateTransferRequest OutboxAggregateType = "transfer_request"
	AggregateMaterial        OutboxAggregateType = "material"
	AggregateNotification    OutboxAggregateType = "notification"
)

// OutboxEventType doubles as the pub/sub message type attribute.
type OutboxEventType string

const (
	EventTransferRequested     OutboxEventType = "transfer_requested"
	EventTransferApproved      OutboxEventType = "transfer_approved"
	EventTransferRejected      OutboxEventType = "transfer_rejected"
	EventTransferCancelled     OutboxEventType = "transfer_cancelled"
	EventMaterialSurplusMarked OutboxEventType = "material_surplus_marked"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

// OutboxDLQErrorReason records why a row was moved to the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
