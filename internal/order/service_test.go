package order

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mengleangdeaun/foodie-sub002/internal/catalog"
	"github.com/mengleangdeaun/foodie-sub002/internal/events"
)

type stubCatalog struct {
	branch    catalog.Branch
	snapshots map[uuid.UUID]catalog.Snapshot
}

func (s *stubCatalog) GetBranch(_ context.Context, _, _ uuid.UUID) (catalog.Branch, error) {
	return s.branch, nil
}

func (s *stubCatalog) GetSnapshot(_ context.Context, _, _, productID uuid.UUID) (catalog.Snapshot, error) {
	snap, ok := s.snapshots[productID]
	if !ok {
		return catalog.Snapshot{}, catalog.ErrProductNotFound
	}
	return snap, nil
}

type stubStore struct {
	created []*Order
	orders  map[uuid.UUID]Order
	fail    error
}

func (s *stubStore) Create(_ context.Context, o *Order) error {
	if s.fail != nil {
		return s.fail
	}
	s.created = append(s.created, o)
	return nil
}

func (s *stubStore) Get(_ context.Context, _, _, orderID uuid.UUID) (Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *stubStore) List(_ context.Context, _, _ uuid.UUID, _ *Status, _, _ int32) ([]Order, int64, error) {
	return nil, 0, nil
}

func (s *stubStore) UpdateStatus(_ context.Context, _, _, orderID uuid.UUID, from, to Status) error {
	o, ok := s.orders[orderID]
	if !ok || o.Status != from {
		return ErrInvalidTransition
	}
	o.Status = to
	s.orders[orderID] = o
	return nil
}

type memEventStore struct {
	events []events.Event
}

func (m *memEventStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload}
	m.events = append(m.events, ev)
	return ev, nil
}

func discountedBranchRule(pct float64) *catalog.BranchProduct {
	return &catalog.BranchProduct{
		ID:              uuid.New(),
		DiscountPercent: pct,
		DiscountActive:  true,
		Available:       true,
	}
}

func newTestService(t *testing.T, cat *stubCatalog, store *stubStore) (*Service, *memEventStore) {
	t.Helper()
	evStore := &memEventStore{}
	return &Service{
		Catalog: cat,
		Store:   store,
		Events:  &events.Bus{Store: evStore},
		Logger:  zerolog.Nop(),
	}, evStore
}

func TestCreateEndToEndTotals(t *testing.T) {
	ownerID, branchID := uuid.New(), uuid.New()
	productID, modifierID := uuid.New(), uuid.New()

	cat := &stubCatalog{
		branch: catalog.Branch{ID: branchID, OwnerID: ownerID, TaxRate: 8, TaxActive: true},
		snapshots: map[uuid.UUID]catalog.Snapshot{
			productID: {
				Product: catalog.Product{
					ID:        productID,
					Name:      "Beef Noodles",
					BasePrice: 10.00,
					ModifierGroups: []catalog.ModifierGroup{{
						ID:        uuid.New(),
						Name:      "Add-ons",
						Modifiers: []catalog.Modifier{{ID: modifierID, Name: "Extra Beef", Price: 1.50}},
					}},
				},
				BranchProduct: discountedBranchRule(10),
			},
		},
	}
	store := &stubStore{}
	svc, evStore := newTestService(t, cat, store)

	o, err := svc.Create(context.Background(), ownerID, branchID, CreateInput{
		OrderType: TypeWalkIn,
		Lines: []LineInput{{
			ProductID:   productID,
			Quantity:    2,
			ModifierIDs: []uuid.UUID{modifierID},
		}},
	})
	require.NoError(t, err)
	require.Len(t, store.created, 1)

	require.Equal(t, 23.00, o.Subtotal)
	require.Equal(t, 2.00, o.ItemDiscountTotal)
	require.Equal(t, 2.00, o.OrderDiscountAmount)
	require.Equal(t, 8.0, o.TaxRate)
	require.Equal(t, 1.68, o.TaxAmount)
	require.Equal(t, 22.68, o.Total)
	require.Equal(t, StatusConfirmed, o.Status)

	require.Len(t, o.Items, 1)
	item := o.Items[0]
	require.Equal(t, 10.00, item.BasePrice)
	require.Equal(t, 1.50, item.ModifierTotalPrice)
	require.Equal(t, 2.00, item.ItemDiscountAmount)
	require.Equal(t, 10.50, item.FinalUnitPrice)
	require.Equal(t, "+ Extra Beef", item.Remark)
	require.Len(t, item.SelectedModifiers, 1)
	require.Equal(t, "Extra Beef", item.SelectedModifiers[0].Name)

	require.Len(t, evStore.events, 1)
	require.Equal(t, events.TopicOrderCreated, evStore.events[0].Topic)
}

func TestCreateTotalsAreDeterministic(t *testing.T) {
	ownerID, branchID := uuid.New(), uuid.New()
	productID := uuid.New()
	cat := &stubCatalog{
		branch: catalog.Branch{ID: branchID, OwnerID: ownerID, TaxRate: 10, TaxActive: true},
		snapshots: map[uuid.UUID]catalog.Snapshot{
			productID: {
				Product:       catalog.Product{ID: productID, Name: "Iced Latte", BasePrice: 9.995},
				BranchProduct: discountedBranchRule(10),
			},
		},
	}
	in := CreateInput{
		OrderType: TypeWalkIn,
		Lines:     []LineInput{{ProductID: productID, Quantity: 3}},
	}

	svc1, _ := newTestService(t, cat, &stubStore{})
	first, err := svc1.Create(context.Background(), ownerID, branchID, in)
	require.NoError(t, err)
	svc2, _ := newTestService(t, cat, &stubStore{})
	second, err := svc2.Create(context.Background(), ownerID, branchID, in)
	require.NoError(t, err)

	require.Equal(t, first.Subtotal, second.Subtotal)
	require.Equal(t, first.TaxAmount, second.TaxAmount)
	require.Equal(t, first.Total, second.Total)
	require.Equal(t, 29.99, first.Subtotal)
	require.Equal(t, 3.00, first.ItemDiscountTotal)
}

func TestCreateOrderDiscountAmountWinsOverPercentage(t *testing.T) {
	ownerID, branchID := uuid.New(), uuid.New()
	productID := uuid.New()
	cat := &stubCatalog{
		branch: catalog.Branch{ID: branchID, OwnerID: ownerID},
		snapshots: map[uuid.UUID]catalog.Snapshot{
			productID: {Product: catalog.Product{ID: productID, Name: "Fried Rice", BasePrice: 50.00}},
		},
	}
	svc, _ := newTestService(t, cat, &stubStore{})

	o, err := svc.Create(context.Background(), ownerID, branchID, CreateInput{
		OrderType:            TypeWalkIn,
		Lines:                []LineInput{{ProductID: productID, Quantity: 1}},
		OrderDiscountAmount:  5.00,
		OrderDiscountPercent: 50,
	})
	require.NoError(t, err)
	require.Equal(t, 5.00, o.OrderLevelDiscount)
	require.Equal(t, 45.00, o.Total)
}

func TestCreateDeliveryPartnerDiscountStacks(t *testing.T) {
	ownerID, branchID := uuid.New(), uuid.New()
	productID := uuid.New()
	cat := &stubCatalog{
		branch: catalog.Branch{ID: branchID, OwnerID: ownerID},
		snapshots: map[uuid.UUID]catalog.Snapshot{
			productID: {Product: catalog.Product{ID: productID, Name: "Spring Rolls", BasePrice: 20.00}},
		},
	}
	svc, _ := newTestService(t, cat, &stubStore{})

	o, err := svc.Create(context.Background(), ownerID, branchID, CreateInput{
		OrderType:               TypeDelivery,
		Lines:                   []LineInput{{ProductID: productID, Quantity: 2}},
		OrderDiscountPercent:    10,
		DeliveryPartnerDiscount: 3.00,
	})
	require.NoError(t, err)
	require.Equal(t, 40.00, o.Subtotal)
	require.Equal(t, 4.00, o.OrderLevelDiscount)
	require.Equal(t, 3.00, o.DeliveryPartnerDiscount)
	require.Equal(t, 7.00, o.OrderDiscountAmount)
	require.Equal(t, 33.00, o.Total)
}

func TestCreateRejectsForeignSizeAndModifier(t *testing.T) {
	ownerID, branchID := uuid.New(), uuid.New()
	productID := uuid.New()
	cat := &stubCatalog{
		branch: catalog.Branch{ID: branchID, OwnerID: ownerID},
		snapshots: map[uuid.UUID]catalog.Snapshot{
			productID: {Product: catalog.Product{ID: productID, Name: "Pho", BasePrice: 8.00}},
		},
	}
	svc, _ := newTestService(t, cat, &stubStore{})

	foreignSize := uuid.New()
	_, err := svc.Create(context.Background(), ownerID, branchID, CreateInput{
		OrderType: TypeWalkIn,
		Lines:     []LineInput{{ProductID: productID, SizeID: &foreignSize, Quantity: 1}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "lines[0].size_id")

	_, err = svc.Create(context.Background(), ownerID, branchID, CreateInput{
		OrderType: TypeWalkIn,
		Lines:     []LineInput{{ProductID: productID, Quantity: 1, ModifierIDs: []uuid.UUID{uuid.New()}}},
	})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "lines[0].modifier_ids")
}

func TestCreateUnavailableLineAbortsWholeOrder(t *testing.T) {
	ownerID, branchID := uuid.New(), uuid.New()
	okProduct, offProduct := uuid.New(), uuid.New()
	cat := &stubCatalog{
		branch: catalog.Branch{ID: branchID, OwnerID: ownerID},
		snapshots: map[uuid.UUID]catalog.Snapshot{
			okProduct: {Product: catalog.Product{ID: okProduct, Name: "Dumplings", BasePrice: 6.00}},
			offProduct: {
				Product:       catalog.Product{ID: offProduct, Name: "Seasonal Soup", BasePrice: 7.00},
				BranchProduct: &catalog.BranchProduct{ID: uuid.New(), Available: false},
			},
		},
	}
	store := &stubStore{}
	svc, evStore := newTestService(t, cat, store)

	_, err := svc.Create(context.Background(), ownerID, branchID, CreateInput{
		OrderType: TypeWalkIn,
		Lines: []LineInput{
			{ProductID: okProduct, Quantity: 1},
			{ProductID: offProduct, Quantity: 1},
		},
	})
	var uerr *UnavailableError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, 1, uerr.Line)
	require.Equal(t, "Seasonal Soup", uerr.ProductName)
	require.Empty(t, store.created)
	require.Empty(t, evStore.events)
}

func TestCreatePersistenceFailureEmitsNothing(t *testing.T) {
	ownerID, branchID := uuid.New(), uuid.New()
	productID := uuid.New()
	cat := &stubCatalog{
		branch: catalog.Branch{ID: branchID, OwnerID: ownerID},
		snapshots: map[uuid.UUID]catalog.Snapshot{
			productID: {Product: catalog.Product{ID: productID, Name: "Satay", BasePrice: 12.00}},
		},
	}
	store := &stubStore{fail: errors.New("connection reset")}
	svc, evStore := newTestService(t, cat, store)

	_, err := svc.Create(context.Background(), ownerID, branchID, CreateInput{
		OrderType: TypeWalkIn,
		Lines:     []LineInput{{ProductID: productID, Quantity: 1}},
	})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Empty(t, evStore.events)
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newTestService(t, &stubCatalog{}, &stubStore{})

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), CreateInput{
		OrderType: Type("pickup"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "order_type")
	require.Contains(t, verr.Fields, "lines")
}

func TestTransitionLifecycle(t *testing.T) {
	ownerID, branchID, orderID := uuid.New(), uuid.New(), uuid.New()
	store := &stubStore{orders: map[uuid.UUID]Order{
		orderID: {ID: orderID, BranchID: branchID, Status: StatusConfirmed},
	}}
	svc, evStore := newTestService(t, &stubCatalog{branch: catalog.Branch{ID: branchID, OwnerID: ownerID}}, store)

	o, err := svc.Transition(context.Background(), ownerID, branchID, orderID, StatusCooking)
	require.NoError(t, err)
	require.Equal(t, StatusCooking, o.Status)
	require.Len(t, evStore.events, 1)
	require.Equal(t, events.TopicOrderStatusChanged, evStore.events[0].Topic)

	_, err = svc.Transition(context.Background(), ownerID, branchID, orderID, StatusPaid)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Transition(context.Background(), ownerID, branchID, orderID, StatusCancelled)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), ownerID, branchID, orderID, StatusCooking)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t, &stubCatalog{}, &stubStore{orders: map[uuid.UUID]Order{}})
	_, err := svc.Transition(context.Background(), uuid.New(), uuid.New(), uuid.New(), Status("shipped"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
