package enums

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var orderStatuses = set[OrderStatus]{OrderStatusPending, OrderStatusPaid, OrderStatusCancelled}

func (s OrderStatus) IsValid() bool { return orderStatuses.has(s) }

// PaymentProvider identifies the gateway that sent a notification.
type PaymentProvider string

const (
	PaymentProviderAsaas       PaymentProvider = "asaas"
	PaymentProviderMercadoPago PaymentProvider = "mercadopago"
	PaymentProviderStripe      PaymentProvider = "stripe"
)

var paymentProviders = set[PaymentProvider]{PaymentProviderAsaas, PaymentProviderMercadoPago, PaymentProviderStripe}

func (p PaymentProvider) IsValid() bool { return paymentProviders.has(p) }

// PaymentEventStatus is a gateway status after normalization. Only approved
// settles an order.
type PaymentEventStatus string

const (
	PaymentEventApproved PaymentEventStatus = "approved"
	PaymentEventPending  PaymentEventStatus = "pending"
	PaymentEventRejected PaymentEventStatus = "rejected"
)

var paymentEventStatuses = set[PaymentEventStatus]{PaymentEventApproved, PaymentEventPending, PaymentEventRejected}

func (s PaymentEventStatus) IsValid() bool { return paymentEventStatuses.has(s) }
