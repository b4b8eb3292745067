package orders

import "github.com/angelmondragon/maillot-backend/pkg/enums"

var validNext = map[enums.OrderStatus]map[enums.OrderStatus]bool{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing: true, enums.OrderStatusCancelled: true},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped: true, enums.OrderStatusCancelled: true},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered: true},
	enums.OrderStatusDelivered:  {},
	enums.OrderStatusCancelled:  {},
	enums.OrderStatusRefunded:   {},
}

// CanTransition reports whether an order may move from one status to another.
// Refunds are allowed from any live status once the order is paid.
func CanTransition(from, to enums.OrderStatus, payment enums.OrderPaymentStatus) bool {
	if to == enums.OrderStatusRefunded {
		return from != enums.OrderStatusCancelled && from != enums.OrderStatusRefunded &&
			payment == enums.OrderPaymentStatusPaid
	}
	return validNext[from][to]
}
