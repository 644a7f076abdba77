package inventory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

type memInventoryRepo struct {
	movements []StockMovement
}

func (r *memInventoryRepo) InsertMovements(_ context.Context, moves []StockMovement) error {
	r.movements = append(r.movements, moves...)
	return nil
}

func (r *memInventoryRepo) LatestRate(context.Context, int64, int64, int64) (float64, bool, error) {
	return 0, false, nil
}

func (r *memInventoryRepo) PurchasePrice(context.Context, int64, int64) (float64, error) {
	return 0, shared.ErrNotFound
}

type stubHandler struct {
	err    error
	events []ShipmentPostedEvent
}

func (h *stubHandler) HandleShipmentPosted(_ context.Context, evt ShipmentPostedEvent) (journals.PostingResult, error) {
	h.events = append(h.events, evt)
	if h.err != nil {
		return journals.PostingResult{}, h.err
	}
	id := int64(300)
	return journals.PostingResult{JournalEntryID: &id, JournalCode: "JE-2025-0004"}, nil
}

func newTestService(repo *memInventoryRepo, handler *stubHandler) *Service {
	return NewService(repo, handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func shipmentInput() ShipmentInput {
	return ShipmentInput{
		CompanyID:   1,
		Code:        "SHP-0001",
		WarehouseID: 2,
		ShippedAt:   time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC),
		Items: []ShipmentItem{
			{ProductID: 1, Qty: 2},
			{ProductID: 2, Qty: 3},
		},
		ActorID: 3,
	}
}

func TestPostShipmentWritesMovementsAndPosts(t *testing.T) {
	repo := &memInventoryRepo{}
	handler := &stubHandler{}
	svc := newTestService(repo, handler)

	out, err := svc.PostShipment(context.Background(), shipmentInput())
	require.NoError(t, err)
	require.Equal(t, "JE-2025-0004", out.JournalCode)

	require.Len(t, repo.movements, 2)
	for _, m := range repo.movements {
		require.Equal(t, MovementOut, m.Direction)
		require.Equal(t, "SHIPMENT", m.RefType)
		require.Equal(t, "SHP-0001", m.RefCode)
	}
	require.Len(t, handler.events, 1)
	require.Equal(t, "SHP-0001", handler.events[0].Code)
	require.Len(t, handler.events[0].Items, 2)
}

func TestPostShipmentGLFailureKeepsMovements(t *testing.T) {
	repo := &memInventoryRepo{}
	handler := &stubHandler{err: errors.New("cogs account missing")}
	svc := newTestService(repo, handler)

	_, err := svc.PostShipment(context.Background(), shipmentInput())
	require.Error(t, err)
	require.Len(t, repo.movements, 2, "stock movements survive a GL failure")
}

func TestPostShipmentValidation(t *testing.T) {
	svc := newTestService(&memInventoryRepo{}, &stubHandler{})

	in := shipmentInput()
	in.Items = nil
	_, err := svc.PostShipment(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidationFailed)

	in = shipmentInput()
	in.Items[0].Qty = 0
	_, err = svc.PostShipment(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidationFailed)
}
