package enums

type NotificationType string

const (
	NotificationTypeTransferRequested NotificationType = "transfer_requested"
	NotificationTypeTransferApproved  NotificationType = "transfer_approved"
	NotificationTypeTransferRejected  NotificationType = "transfer_rejected"
	NotificationTypeSystem            NotificationType = "system"
)

var notificationTypes = []NotificationType{
	NotificationTypeTransferRequested, NotificationTypeTransferApproved,
	NotificationTypeTransferRejected, NotificationTypeSystem,
}

func (n NotificationType) IsValid() bool { return oneOf(n, notificationTypes) }

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)

var notificationPriorities = []NotificationPriority{
	NotificationPriorityLow, NotificationPriorityNormal, NotificationPriorityHigh,
}

func (p NotificationPriority) IsValid() bool { return oneOf(p, notificationPriorities) }
