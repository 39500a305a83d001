package enums

type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateWithdrawal OutboxAggregateType = "withdrawal"
)

var aggregateTypes = set[OutboxAggregateType]{AggregateOrder, AggregateWithdrawal}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

type OutboxEventType string

const (
	EventOrderPaid           OutboxEventType = "order_paid"
	EventSaleRecorded        OutboxEventType = "sale_recorded"
	EventWithdrawalProcessed OutboxEventType = "withdrawal_processed"
	EventWithdrawalRejected  OutboxEventType = "withdrawal_rejected"
	EventWithdrawalCancelled OutboxEventType = "withdrawal_cancelled"
)

var outboxEventTypes = set[OutboxEventType]{
	EventOrderPaid,
	EventSaleRecorded,
	EventWithdrawalProcessed,
	EventWithdrawalRejected,
	EventWithdrawalCancelled,
}

func (e OutboxEventType) IsValid() bool { return outboxEventTypes.has(e) }

// OutboxDLQErrorReason says why a row left the publish queue.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonPermanent   OutboxDLQErrorReason = "permanent"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonPermanent
}
