package ap

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

type glState struct {
	posted  bool
	glError string
}

type memAPRepo struct {
	nextID   int64
	receipts map[int64]GoodsReceipt
	payments map[int64]Payment
	glStates map[int64]glState
}

func newMemAPRepo() *memAPRepo {
	return &memAPRepo{
		nextID:   1,
		receipts: map[int64]GoodsReceipt{},
		payments: map[int64]Payment{},
		glStates: map[int64]glState{},
	}
}

func (r *memAPRepo) InsertReceipt(_ context.Context, rec *GoodsReceipt) error {
	rec.ID = r.nextID
	r.nextID++
	rec.CreatedAt = time.Now()
	r.receipts[rec.ID] = *rec
	return nil
}

func (r *memAPRepo) InsertPayment(_ context.Context, p *Payment) error {
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now()
	r.payments[p.ID] = *p
	return nil
}

func (r *memAPRepo) GetPayment(_ context.Context, companyID, id int64) (Payment, error) {
	p, ok := r.payments[id]
	if !ok || p.CompanyID != companyID {
		return Payment{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memAPRepo) SetPaymentGLState(_ context.Context, _, id int64, posted bool, glError string) error {
	r.glStates[id] = glState{posted: posted, glError: glError}
	return nil
}

type stubHandler struct {
	err      error
	receipts []ReceiptRecordedEvent
	payments []PaymentRecordedEvent
}

func (h *stubHandler) HandleReceiptRecorded(_ context.Context, evt ReceiptRecordedEvent) (journals.PostingResult, error) {
	h.receipts = append(h.receipts, evt)
	if h.err != nil {
		return journals.PostingResult{}, h.err
	}
	id := int64(100)
	return journals.PostingResult{JournalEntryID: &id, JournalCode: "JE-2025-0001"}, nil
}

func (h *stubHandler) HandleAPPaymentRecorded(_ context.Context, evt PaymentRecordedEvent) (journals.PostingResult, error) {
	h.payments = append(h.payments, evt)
	if h.err != nil {
		return journals.PostingResult{}, h.err
	}
	id := int64(101)
	return journals.PostingResult{JournalEntryID: &id, JournalCode: "JE-2025-0002"}, nil
}

func newTestService(repo *memAPRepo, handler *stubHandler) *Service {
	return NewService(repo, handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func paymentInput() RecordPaymentInput {
	return RecordPaymentInput{
		CompanyID:  1,
		Code:       "PAY-0001",
		SupplierID: 5,
		Amount:     125.50,
		Method:     "bank",
		PaidAt:     time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
		ActorID:    3,
	}
}

func TestRecordPaymentPostsToLedger(t *testing.T) {
	repo := newMemAPRepo()
	handler := &stubHandler{}
	svc := newTestService(repo, handler)

	out, err := svc.RecordPayment(context.Background(), paymentInput())
	require.NoError(t, err)
	require.True(t, out.GLPosted)
	require.Equal(t, "JE-2025-0002", out.JournalCode)
	require.Empty(t, out.GLError)
	require.Len(t, handler.payments, 1)
	require.Equal(t, out.Payment.ID, handler.payments[0].PaymentID)
	require.True(t, repo.glStates[out.Payment.ID].posted)
}

func TestRecordPaymentKeepsRowWhenPostingFails(t *testing.T) {
	repo := newMemAPRepo()
	handler := &stubHandler{err: errors.New("ledger unavailable")}
	svc := newTestService(repo, handler)

	out, err := svc.RecordPayment(context.Background(), paymentInput())
	require.NoError(t, err, "a posting failure must not fail the payment")
	require.False(t, out.GLPosted)
	require.Contains(t, out.GLError, "ledger unavailable")
	require.Empty(t, out.JournalCode)

	stored, err := repo.GetPayment(context.Background(), 1, out.Payment.ID)
	require.NoError(t, err)
	require.Equal(t, 125.50, stored.Amount)
	require.False(t, repo.glStates[out.Payment.ID].posted)
	require.Contains(t, repo.glStates[out.Payment.ID].glError, "ledger unavailable")
}

func TestRecordPaymentValidation(t *testing.T) {
	svc := newTestService(newMemAPRepo(), &stubHandler{})

	in := paymentInput()
	in.Amount = 0
	_, err := svc.RecordPayment(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidationFailed)

	in = paymentInput()
	in.Code = ""
	_, err = svc.RecordPayment(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestRecordReceiptPostsToLedger(t *testing.T) {
	repo := newMemAPRepo()
	handler := &stubHandler{}
	svc := newTestService(repo, handler)

	out, err := svc.RecordReceipt(context.Background(), RecordReceiptInput{
		CompanyID:  1,
		Code:       "GR-0001",
		SupplierID: 5,
		Total:      400,
		ReceivedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		ActorID:    3,
	})
	require.NoError(t, err)
	require.Equal(t, "JE-2025-0001", out.JournalCode)
	require.Len(t, handler.receipts, 1)
	require.Equal(t, out.Receipt.ID, handler.receipts[0].ReceiptID)
}

func TestRecordReceiptReturnsPostingErrorButKeepsRow(t *testing.T) {
	repo := newMemAPRepo()
	handler := &stubHandler{err: errors.New("account missing")}
	svc := newTestService(repo, handler)

	out, err := svc.RecordReceipt(context.Background(), RecordReceiptInput{
		CompanyID:  1,
		Code:       "GR-0002",
		SupplierID: 5,
		Total:      400,
		ReceivedAt: time.Now(),
	})
	require.Error(t, err)
	require.NotZero(t, out.Receipt.ID)
	require.Contains(t, repo.receipts, out.Receipt.ID)
}
