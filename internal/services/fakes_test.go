package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eventhub/internal/models"
	"eventhub/internal/services/gateway"
	"eventhub/internal/status"

	"github.com/shopspring/decimal"
)

// memPaymentStore is an in-memory PaymentStore with the same conditional
// update semantics as the database-backed one.
type memPaymentStore struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	nextID   int
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{payments: make(map[string]*models.Payment)}
}

func (s *memPaymentStore) Insert(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.OrderID]; exists {
		return fmt.Errorf("%w: duplicate order id %s", status.ErrPersistence, p.OrderID)
	}

	s.nextID++
	p.ID = fmt.Sprintf("pay_rec_%d", s.nextID)
	p.Created = time.Now()
	p.Updated = p.Created

	clone := *p
	s.payments[p.OrderID] = &clone
	return nil
}

func (s *memPaymentStore) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: payment for order %s", status.ErrNotFound, orderID)
	}
	clone := *p
	return &clone, nil
}

func (s *memPaymentStore) TransitionStatus(ctx context.Context, orderID string, from []models.PaymentStatus, to models.PaymentStatus, set map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[orderID]
	if !ok {
		return false, nil
	}

	matched := false
	for _, st := range from {
		if p.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	p.Status = to
	p.Updated = time.Now()
	for k, v := range set {
		val, _ := v.(string)
		switch k {
		case "gateway_payment_id":
			p.GatewayPaymentID = val
		case "payment_method":
			p.PaymentMethod = val
		case "error_message":
			p.ErrorMessage = val
		case "refund_id":
			p.RefundID = val
		case "refund_details":
			p.RefundDetails = val
		case "payment_link_id":
			p.PaymentLinkID = val
		case "payment_link_url":
			p.PaymentLinkURL = val
		}
	}
	return true, nil
}

// memAttendeeStore is an in-memory AttendeeStore with the conditional
// check-in update.
type memAttendeeStore struct {
	mu        sync.Mutex
	attendees map[string]*models.Attendee
}

func newMemAttendeeStore(attendees ...*models.Attendee) *memAttendeeStore {
	s := &memAttendeeStore{attendees: make(map[string]*models.Attendee)}
	for _, a := range attendees {
		clone := *a
		s.attendees[a.ID] = &clone
	}
	return s
}

func (s *memAttendeeStore) FindByID(ctx context.Context, id string) (*models.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attendees[id]
	if !ok {
		return nil, fmt.Errorf("%w: attendee %s", status.ErrNotFound, id)
	}
	clone := *a
	return &clone, nil
}

func (s *memAttendeeStore) MarkCheckedIn(ctx context.Context, id string, at time.Time, actor string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attendees[id]
	if !ok || a.Status != models.AttendeeStatusRegistered {
		return false, nil
	}

	a.Status = models.AttendeeStatusCheckedIn
	t := at
	a.CheckInTime = &t
	a.CheckedInBy = actor
	return true, nil
}

func (s *memAttendeeStore) SetTicketCode(ctx context.Context, id, codeHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attendees[id]
	if !ok {
		return fmt.Errorf("%w: attendee %s", status.ErrNotFound, id)
	}
	a.CodeHash = codeHash
	return nil
}

// memEventStore is a fixed-content EventStore.
type memEventStore struct {
	events map[string]*models.Event
}

func newMemEventStore(events ...*models.Event) *memEventStore {
	s := &memEventStore{events: make(map[string]*models.Event)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *memEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: event %s", status.ErrNotFound, id)
	}
	return e, nil
}

// memTicketTypeStore is a fixed-content TicketTypeStore.
type memTicketTypeStore struct {
	types map[string]*models.TicketType
}

func newMemTicketTypeStore(types ...*models.TicketType) *memTicketTypeStore {
	s := &memTicketTypeStore{types: make(map[string]*models.TicketType)}
	for _, tt := range types {
		s.types[tt.ID] = tt
	}
	return s
}

func (s *memTicketTypeStore) FindTicketType(ctx context.Context, id string) (*models.TicketType, error) {
	tt, ok := s.types[id]
	if !ok {
		return nil, fmt.Errorf("%w: ticket type %s", status.ErrNotFound, id)
	}
	return tt, nil
}

// fakeGateway is a scriptable PaymentGateway. Zero-value fields fall back to
// permissive defaults so each test only scripts what it cares about.
type fakeGateway struct {
	mu sync.Mutex

	createOrderErr error
	orderSeq       int

	signatureValid bool
	signatureErr   error

	webhookValid bool

	payments       map[string]*gateway.PaymentDetails
	fetchErr       error
	fetchCalls     int
	refundErr      error
	refundSeq      int
	linkErr        error
	createdRefunds []gateway.RefundResult
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		signatureValid: true,
		webhookValid:   true,
		payments:       make(map[string]*gateway.PaymentDetails),
	}
}

func (g *fakeGateway) setPayment(p *gateway.PaymentDetails) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[p.ID] = p
}

func (g *fakeGateway) GetProvider() gateway.Provider { return gateway.ProviderRazorpay }

func (g *fakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createOrderErr != nil {
		return nil, g.createOrderErr
	}
	g.orderSeq++
	return &gateway.Order{
		ID:       fmt.Sprintf("order_%03d", g.orderSeq),
		Receipt:  receipt,
		Amount:   amount,
		Currency: currency,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) (bool, error) {
	if g.signatureErr != nil {
		return false, g.signatureErr
	}
	return g.signatureValid, nil
}

func (g *fakeGateway) VerifyWebhookSignature(body []byte, signature string) (bool, error) {
	return g.webhookValid, nil
}

func (g *fakeGateway) FetchPayment(ctx context.Context, paymentID string) (*gateway.PaymentDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.fetchCalls++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, status.NewGatewayError("fetchPayment", fmt.Errorf("payment %s not found", paymentID))
	}
	clone := *p
	return &clone, nil
}

func (g *fakeGateway) Refund(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*gateway.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refundSeq++
	result := gateway.RefundResult{
		ID:        fmt.Sprintf("rfnd_%03d", g.refundSeq),
		PaymentID: paymentID,
		Amount:    amount,
		Status:    "processed",
	}
	g.createdRefunds = append(g.createdRefunds, result)
	return &result, nil
}

func (g *fakeGateway) CreatePaymentLink(ctx context.Context, req *gateway.LinkRequest) (*gateway.PaymentLink, error) {
	if g.linkErr != nil {
		return nil, g.linkErr
	}
	return &gateway.PaymentLink{
		ID:       "plink_001",
		ShortURL: "https://rzp.io/l/test",
	}, nil
}

// recordingSender captures emails instead of delivering them.
type recordingSender struct {
	mu    sync.Mutex
	sent  []Notification
	fail  bool
	calls int
}

func (s *recordingSender) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.fail {
		return fmt.Errorf("smtp unavailable")
	}
	s.sent = append(s.sent, Notification{To: to, Subject: subject, Body: body})
	return nil
}

// recordingPublisher captures realtime messages.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []Notification
}

func (p *recordingPublisher) Publish(channel string, message map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Notification{Channel: channel, Message: message})
}
