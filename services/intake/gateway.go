package intake

import (
	"context"

	"refurb-app/types"
)

// CatalogLookup resolves TAC prefixes. A nil reference with a nil error means no row matched.
type CatalogLookup interface {
	LookupCatalogByPrefix(ctx context.Context, prefix string) (*CatalogReference, error)
}

// FulfillmentReader is the read side used by CheckFulfillment.
type FulfillmentReader interface {
	ListPlannedLineItems(ctx context.Context, orderID types.SnowflakeID) ([]PlannedLineItem, error)
	CountOrderLinks(ctx context.Context, orderID types.SnowflakeID, onlyLinked bool) (int, error)
}

// Gateway is the persistence surface of the intake workflow. Writes take the acting user explicitly.
type Gateway interface {
	CatalogLookup
	FulfillmentReader

	// GetOrder returns nil when the order does not exist.
	GetOrder(ctx context.Context, orderID types.SnowflakeID) (*OrderHeader, error)
	CreateReceivedDevice(ctx context.Context, actor types.SnowflakeID, device NewDevice) (types.SnowflakeID, error)
	CreateOrderLink(ctx context.Context, actor types.SnowflakeID, orderID, deviceID types.SnowflakeID) (types.SnowflakeID, error)
	RecordDeviceTransaction(ctx context.Context, actor types.SnowflakeID, trx DeviceTransaction) error
	// UpdatePurchaseOrderStatus is driven by the purchase order endpoints. Intake never changes order status.
	UpdatePurchaseOrderStatus(ctx context.Context, actor, orderID types.SnowflakeID, status string) error

	// Transaction runs fn against a gateway bound to one database transaction.
	Transaction(ctx context.Context, fn func(Gateway) error) error
}
