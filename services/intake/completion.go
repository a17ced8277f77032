package intake

import (
	"context"

	"refurb-app/types"
)

// CheckFulfillment compares the planned quantity of an order with the devices linked to it.
// It never writes.
func CheckFulfillment(ctx context.Context, r FulfillmentReader, orderID types.SnowflakeID) (Fulfillment, error) {
	planned, err := r.ListPlannedLineItems(ctx, orderID)
	if err != nil {
		return Fulfillment{}, err
	}
	received, err := r.CountOrderLinks(ctx, orderID, true)
	if err != nil {
		return Fulfillment{}, err
	}
	return Evaluate(PlannedTotal(planned), received), nil
}

func Evaluate(totalPlanned, totalReceived int) Fulfillment {
	return Fulfillment{
		TotalPlanned:  totalPlanned,
		TotalReceived: totalReceived,
		Eligible:      totalReceived >= totalPlanned,
	}
}
