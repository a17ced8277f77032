package intake

import (
	"fmt"
	"strings"
	"time"

	"refurb-app/types"
)

// Mode selects how accepted devices are persisted.
type Mode string

const (
	// ModeBulk queues accepted devices until SubmitAll.
	ModeBulk Mode = "bulk"
	// ModeSingle writes each accepted device immediately.
	ModeSingle Mode = "single"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBulk:
		return ModeBulk, nil
	case ModeSingle:
		return ModeSingle, nil
	}
	return "", newError(KindValidation, fmt.Sprintf("Unknown intake mode %q", s), "", nil)
}

type State string

const (
	StateIdle      State = "idle"
	StateResolving State = "resolving"
)

// Outcome is the result of the most recent scan.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeAccepted Outcome = "accepted"
	OutcomeQueued   Outcome = "queued"
	OutcomeRejected Outcome = "rejected"
)

// OverReceiptPolicy decides what happens when a scan would exceed the planned quantity of the order.
type OverReceiptPolicy string

const (
	PolicyAllow OverReceiptPolicy = "allow"
	PolicyWarn  OverReceiptPolicy = "warn"
	PolicyBlock OverReceiptPolicy = "block"
)

func ParsePolicy(s string) (OverReceiptPolicy, error) {
	switch OverReceiptPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAllow:
		return PolicyAllow, nil
	case PolicyWarn:
		return PolicyWarn, nil
	case PolicyBlock:
		return PolicyBlock, nil
	}
	return "", fmt.Errorf("unknown over-receipt policy %q", s)
}

type CatalogReference struct {
	ID             types.SnowflakeID  `json:"id"`
	TacCode        string             `json:"tac_code"`
	ManufacturerID *types.SnowflakeID `json:"manufacturer_id,omitempty"`
	Manufacturer   string             `json:"manufacturer"`
	ModelName      string             `json:"model_name"`
	ModelNumber    string             `json:"model_no"`
	Colors         []string           `json:"colors"`
	Storage        []string           `json:"storage"`
}

type PlannedLineItem struct {
	ID             types.SnowflakeID `json:"id"`
	ManufacturerID types.SnowflakeID `json:"manufacturer_id"`
	Manufacturer   string            `json:"manufacturer"`
	ModelName      string            `json:"model_name"`
	StorageGB      *int              `json:"storage_gb"`
	Color          *string           `json:"color"`
	GradeID        *uint             `json:"grade_id"`
	Quantity       int               `json:"quantity"`
}

// DeviceSettings are the attributes entered once per session and stamped onto accepted devices.
type DeviceSettings struct {
	StorageGB *int    `json:"storage_gb"`
	Color     *string `json:"color"`
	GradeID   *uint   `json:"grade_id"`
}

func (s DeviceSettings) IsEmpty() bool {
	return s.StorageGB == nil && s.Color == nil && s.GradeID == nil
}

type QueuedDevice struct {
	IMEI      string           `json:"imei"`
	Reference CatalogReference `json:"reference"`
	Settings  DeviceSettings   `json:"settings"`
	ScannedAt time.Time        `json:"scanned_at"`
}

// OrderHeader is the part of a purchase order the intake workflow needs.
type OrderHeader struct {
	ID         types.SnowflakeID  `json:"id"`
	PoNumber   string             `json:"po_number"`
	SupplierID *types.SnowflakeID `json:"supplier_id"`
	Status     string             `json:"status"`
}

// NewDevice holds the fields of a received device row.
type NewDevice struct {
	IMEI       string
	TacID      types.SnowflakeID
	Settings   DeviceSettings
	SupplierID *types.SnowflakeID
	Status     string
}

type DeviceTransaction struct {
	DeviceID   types.SnowflakeID
	Type       string
	RefID      types.SnowflakeID
	PrevStatus *string
	NewStatus  string
	Notes      string
}

type Fulfillment struct {
	TotalPlanned  int  `json:"total_planned"`
	TotalReceived int  `json:"total_received"`
	Eligible      bool `json:"eligible"`
}

type DeviceAddedEvent struct {
	SessionID string              `json:"session_id"`
	Unit      string              `json:"unit"`
	OrderID   types.SnowflakeID   `json:"purchase_order_id"`
	DeviceIDs []types.SnowflakeID `json:"device_ids"`
	Actor     types.SnowflakeID   `json:"actor"`
	At        time.Time           `json:"at"`
}

type FulfilledEvent struct {
	Unit        string      `json:"unit"`
	Order       OrderHeader `json:"order"`
	Fulfillment Fulfillment `json:"fulfillment"`
	At          time.Time   `json:"at"`
}

// Hooks are invoked outside the session lock after writes commit.
type Hooks struct {
	OnDeviceAdded func(DeviceAddedEvent)
	OnFulfilled   func(FulfilledEvent)
}
