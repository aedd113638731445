package enums

// TransferStatus is the lifecycle state of a transfer request. Every state
// other than pending is final.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusApproved  TransferStatus = "approved"
	TransferStatusRejected  TransferStatus = "rejected"
	TransferStatusCancelled TransferStatus = "cancelled"
)

var transferStatuses = []TransferStatus{
	TransferStatusPending, TransferStatusApproved, TransferStatusRejected, TransferStatusCancelled,
}

func (s TransferStatus) String() string   { return string(s) }
func (s TransferStatus) IsValid() bool    { return oneOf(s, transferStatuses) }
func (s TransferStatus) IsTerminal() bool { return s.IsValid() && s != TransferStatusPending }

// TransferCommentType tags each entry of a request's comment thread.
type TransferCommentType string

const (
	TransferCommentRequest      TransferCommentType = "request"
	TransferCommentApproval     TransferCommentType = "approval"
	TransferCommentRejection    TransferCommentType = "rejection"
	TransferCommentCancellation TransferCommentType = "cancellation"
)

// TransferDirection picks which side of a transfer the caller's organization is on.
type TransferDirection string

const (
	TransferDirectionIncoming TransferDirection = "incoming"
	TransferDirectionOutgoing TransferDirection = "outgoing"
)

func ParseTransferDirection(raw string) (TransferDirection, error) {
	return parse("transfer direction", raw, []TransferDirection{TransferDirectionIncoming, TransferDirectionOutgoing})
}
