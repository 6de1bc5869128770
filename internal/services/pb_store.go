package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/models"
	"eventhub/internal/status"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

// PBPaymentStore persists payments in the PocketBase "payments" collection.
// Inserts go through the record API so ids and timestamps come from the app;
// status transitions go through dbx so the condition and the write are one
// statement.
type PBPaymentStore struct {
	app core.App
}

func NewPBPaymentStore(app core.App) *PBPaymentStore {
	return &PBPaymentStore{app: app}
}

type paymentRow struct {
	ID               string         `db:"id"`
	OrderID          string         `db:"order_id"`
	GatewayPaymentID string         `db:"gateway_payment_id"`
	EventID          string         `db:"event_id"`
	AttendeeID       string         `db:"attendee_id"`
	TicketTypeID     string         `db:"ticket_type_id"`
	Amount           string         `db:"amount"`
	Currency         string         `db:"currency"`
	Status           string         `db:"status"`
	PaymentMethod    string         `db:"payment_method"`
	ErrorMessage     string         `db:"error_message"`
	RefundID         string         `db:"refund_id"`
	RefundDetails    string         `db:"refund_details"`
	PaymentLinkID    string         `db:"payment_link_id"`
	PaymentLinkURL   string         `db:"payment_link_url"`
	Created          types.DateTime `db:"created"`
	Updated          types.DateTime `db:"updated"`
}

func (r *paymentRow) toModel() (*models.Payment, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("payment %s: bad stored amount %q: %w", r.OrderID, r.Amount, err)
	}

	return &models.Payment{
		ID:               r.ID,
		OrderID:          r.OrderID,
		GatewayPaymentID: r.GatewayPaymentID,
		EventID:          r.EventID,
		AttendeeID:       r.AttendeeID,
		TicketTypeID:     r.TicketTypeID,
		Amount:           amount,
		Currency:         r.Currency,
		Status:           models.PaymentStatus(r.Status),
		PaymentMethod:    r.PaymentMethod,
		ErrorMessage:     r.ErrorMessage,
		RefundID:         r.RefundID,
		RefundDetails:    r.RefundDetails,
		PaymentLinkID:    r.PaymentLinkID,
		PaymentLinkURL:   r.PaymentLinkURL,
		Created:          r.Created.Time(),
		Updated:          r.Updated.Time(),
	}, nil
}

func (s *PBPaymentStore) Insert(ctx context.Context, p *models.Payment) error {
	collection, err := s.app.FindCollectionByNameOrId("payments")
	if err != nil {
		return fmt.Errorf("%w: payments collection: %v", status.ErrPersistence, err)
	}

	record := core.NewRecord(collection)
	record.Set("order_id", p.OrderID)
	record.Set("event_id", p.EventID)
	record.Set("attendee_id", p.AttendeeID)
	record.Set("ticket_type_id", p.TicketTypeID)
	record.Set("amount", p.Amount.String())
	record.Set("currency", p.Currency)
	record.Set("status", string(p.Status))

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("%w: insert payment %s: %v", status.ErrPersistence, p.OrderID, err)
	}

	p.ID = record.Id
	return nil
}

func (s *PBPaymentStore) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var row paymentRow
	err := s.app.DB().
		Select("*").
		From("payments").
		Where(dbx.HashExp{"order_id": orderID}).
		WithContext(ctx).
		One(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: payment for order %s", status.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: find payment %s: %v", status.ErrPersistence, orderID, err)
	}

	return row.toModel()
}

// TransitionStatus runs a single conditional update. Zero rows affected
// means the row either does not exist or is not in one of the from statuses;
// the caller re-reads to tell which.
func (s *PBPaymentStore) TransitionStatus(ctx context.Context, orderID string, from []models.PaymentStatus, to models.PaymentStatus, set map[string]any) (bool, error) {
	params := dbx.Params{
		"status":  string(to),
		"updated": types.NowDateTime(),
	}
	for k, v := range set {
		params[k] = v
	}

	fromValues := make([]any, len(from))
	for i, st := range from {
		fromValues[i] = string(st)
	}

	result, err := s.app.DB().
		Update("payments", params, dbx.And(
			dbx.HashExp{"order_id": orderID},
			dbx.In("status", fromValues...),
		)).
		WithContext(ctx).
		Execute()
	if err != nil {
		return false, fmt.Errorf("%w: transition payment %s: %v", status.ErrPersistence, orderID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: transition payment %s: %v", status.ErrPersistence, orderID, err)
	}
	return affected > 0, nil
}

// PBAttendeeStore persists attendees in the "attendees" collection.
type PBAttendeeStore struct {
	app core.App
}

func NewPBAttendeeStore(app core.App) *PBAttendeeStore {
	return &PBAttendeeStore{app: app}
}

type attendeeRow struct {
	ID          string         `db:"id"`
	EventID     string         `db:"event_id"`
	Name        string         `db:"name"`
	Email       string         `db:"email"`
	Status      string         `db:"status"`
	CheckInTime types.DateTime `db:"check_in_time"`
	CheckedInBy string         `db:"checked_in_by"`
	CodeHash    string         `db:"code_hash"`
}

func (r *attendeeRow) toModel() *models.Attendee {
	a := &models.Attendee{
		ID:          r.ID,
		EventID:     r.EventID,
		Name:        r.Name,
		Email:       r.Email,
		Status:      models.AttendeeStatus(r.Status),
		CheckedInBy: r.CheckedInBy,
		CodeHash:    r.CodeHash,
	}
	if !r.CheckInTime.IsZero() {
		t := r.CheckInTime.Time()
		a.CheckInTime = &t
	}
	return a
}

func (s *PBAttendeeStore) FindByID(ctx context.Context, id string) (*models.Attendee, error) {
	var row attendeeRow
	err := s.app.DB().
		Select("*").
		From("attendees").
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: attendee %s", status.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: find attendee %s: %v", status.ErrPersistence, id, err)
	}

	return row.toModel(), nil
}

// MarkCheckedIn is the one-shot check-in transition, gated on the registered
// status so two concurrent scanners cannot both win.
func (s *PBAttendeeStore) MarkCheckedIn(ctx context.Context, id string, at time.Time, actor string) (bool, error) {
	checkInTime, err := types.ParseDateTime(at.UTC())
	if err != nil {
		return false, fmt.Errorf("%w: check-in time: %v", status.ErrPersistence, err)
	}

	result, err := s.app.DB().
		Update("attendees", dbx.Params{
			"status":        string(models.AttendeeStatusCheckedIn),
			"check_in_time": checkInTime,
			"checked_in_by": actor,
			"updated":       types.NowDateTime(),
		}, dbx.And(
			dbx.HashExp{"id": id},
			dbx.HashExp{"status": string(models.AttendeeStatusRegistered)},
		)).
		WithContext(ctx).
		Execute()
	if err != nil {
		return false, fmt.Errorf("%w: check in attendee %s: %v", status.ErrPersistence, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: check in attendee %s: %v", status.ErrPersistence, id, err)
	}
	return affected > 0, nil
}

func (s *PBAttendeeStore) SetTicketCode(ctx context.Context, id, codeHash string) error {
	record, err := s.app.FindRecordById("attendees", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: attendee %s", status.ErrNotFound, id)
		}
		return fmt.Errorf("%w: find attendee %s: %v", status.ErrPersistence, id, err)
	}

	record.Set("code_hash", codeHash)
	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("%w: set ticket code for %s: %v", status.ErrPersistence, id, err)
	}
	return nil
}

// PBEventStore reads event summaries from the "events" collection.
type PBEventStore struct {
	app core.App
}

func NewPBEventStore(app core.App) *PBEventStore {
	return &PBEventStore{app: app}
}

type eventRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Venue     string         `db:"venue"`
	StartDate types.DateTime `db:"start_date"`
	Organizer string         `db:"organizer"`
	Status    string         `db:"status"`
}

func (s *PBEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	var row eventRow
	err := s.app.DB().
		Select("id", "name", "venue", "start_date", "organizer", "status").
		From("events").
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: event %s", status.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: find event %s: %v", status.ErrPersistence, id, err)
	}

	return &models.Event{
		ID:        row.ID,
		Name:      row.Name,
		Venue:     row.Venue,
		StartDate: row.StartDate.Time(),
		Organizer: row.Organizer,
		Status:    row.Status,
	}, nil
}

type ticketTypeRow struct {
	ID       string `db:"id"`
	EventID  string `db:"event_id"`
	Name     string `db:"name"`
	Price    string `db:"price"`
	Currency string `db:"currency"`
}

// FindTicketType resolves a priced ticket type from the "ticket_types"
// collection. Payment creation uses it as the price authority.
func (s *PBEventStore) FindTicketType(ctx context.Context, id string) (*models.TicketType, error) {
	var row ticketTypeRow
	err := s.app.DB().
		Select("id", "event_id", "name", "price", "currency").
		From("ticket_types").
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: ticket type %s", status.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: find ticket type %s: %v", status.ErrPersistence, id, err)
	}

	price, err := decimal.NewFromString(row.Price)
	if err != nil {
		return nil, fmt.Errorf("ticket type %s: bad stored price %q: %w", id, row.Price, err)
	}

	return &models.TicketType{
		ID:       row.ID,
		EventID:  row.EventID,
		Name:     row.Name,
		Price:    price,
		Currency: row.Currency,
	}, nil
}
