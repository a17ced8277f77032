package intake

import (
	"context"
	"errors"
	"sync"

	"refurb-app/types"
)

var errBoom = errors.New("connection reset by peer")

type fakeGateway struct {
	mu sync.Mutex

	catalog   map[string]*CatalogReference
	lookupErr error
	lookups   int

	// entered/release let a test hold a lookup in flight.
	entered chan struct{}
	release chan struct{}

	orders  map[types.SnowflakeID]*OrderHeader
	planned map[types.SnowflakeID][]PlannedLineItem

	devices      map[types.SnowflakeID]NewDevice
	imeis        map[string]bool
	links        map[types.SnowflakeID][]types.SnowflakeID
	transactions []DeviceTransaction
	statuses     map[types.SnowflakeID]string
	actors       []types.SnowflakeID

	createCalls  int
	failCreateAt int
	failErr      error
	nextID       int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		catalog:  make(map[string]*CatalogReference),
		orders:   make(map[types.SnowflakeID]*OrderHeader),
		planned:  make(map[types.SnowflakeID][]PlannedLineItem),
		devices:  make(map[types.SnowflakeID]NewDevice),
		imeis:    make(map[string]bool),
		links:    make(map[types.SnowflakeID][]types.SnowflakeID),
		statuses: make(map[types.SnowflakeID]string),
		nextID:   1000,
	}
}

func (f *fakeGateway) id() types.SnowflakeID {
	f.nextID++
	return types.SnowflakeID(f.nextID)
}

func (f *fakeGateway) LookupCatalogByPrefix(ctx context.Context, prefix string) (*CatalogReference, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	ref, ok := f.catalog[prefix]
	if !ok {
		return nil, nil
	}
	out := *ref
	return &out, nil
}

func (f *fakeGateway) ListPlannedLineItems(ctx context.Context, orderID types.SnowflakeID) ([]PlannedLineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PlannedLineItem(nil), f.planned[orderID]...), nil
}

func (f *fakeGateway) CountOrderLinks(ctx context.Context, orderID types.SnowflakeID, onlyLinked bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.links[orderID]), nil
}

func (f *fakeGateway) GetOrder(ctx context.Context, orderID types.SnowflakeID) (*OrderHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	out := *o
	return &out, nil
}

func (f *fakeGateway) CreateReceivedDevice(ctx context.Context, actor types.SnowflakeID, device NewDevice) (types.SnowflakeID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.failCreateAt == f.createCalls {
		return 0, f.failErr
	}
	if f.imeis[device.IMEI] {
		return 0, ErrDuplicateIMEI
	}
	id := f.id()
	f.devices[id] = device
	f.imeis[device.IMEI] = true
	f.actors = append(f.actors, actor)
	return id, nil
}

func (f *fakeGateway) CreateOrderLink(ctx context.Context, actor types.SnowflakeID, orderID, deviceID types.SnowflakeID) (types.SnowflakeID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[orderID] = append(f.links[orderID], deviceID)
	return f.id(), nil
}

func (f *fakeGateway) RecordDeviceTransaction(ctx context.Context, actor types.SnowflakeID, trx DeviceTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions = append(f.transactions, trx)
	return nil
}

func (f *fakeGateway) UpdatePurchaseOrderStatus(ctx context.Context, actor, orderID types.SnowflakeID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[orderID] = status
	return nil
}

func (f *fakeGateway) Transaction(ctx context.Context, fn func(Gateway) error) error {
	return fn(f)
}

func (f *fakeGateway) deviceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.devices)
}

func (f *fakeGateway) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

const (
	testOrderID types.SnowflakeID = 42
	testActor   types.SnowflakeID = 7
	testUnit                      = "refurb"
)

func iphone13() *CatalogReference {
	return &CatalogReference{ID: 501, TacCode: "12345678", Manufacturer: "Apple", ModelName: "iPhone 13", ModelNumber: "A2633"}
}

func galaxyS22() *CatalogReference {
	return &CatalogReference{ID: 502, TacCode: "35467812", Manufacturer: "Samsung", ModelName: "Galaxy S22", ModelNumber: "SM-S901B"}
}

// seededGateway has one order planning five Apple iPhone 13.
func seededGateway() *fakeGateway {
	f := newFakeGateway()
	f.catalog["12345678"] = iphone13()
	f.catalog["35467812"] = galaxyS22()
	supplier := types.SnowflakeID(9)
	f.orders[testOrderID] = &OrderHeader{ID: testOrderID, PoNumber: "PO-20240101-001", SupplierID: &supplier, Status: "processing"}
	f.planned[testOrderID] = []PlannedLineItem{{ID: 1, Manufacturer: "Apple", ModelName: "iPhone 13", Quantity: 5}}
	return f
}
