package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventhub/internal/models"
	"eventhub/internal/qrticket"
	"eventhub/internal/status"
	"eventhub/monitoring"
	"eventhub/utils"
)

// AttendeeStore is the persistence contract for the check-in path.
// MarkCheckedIn is a conditional single-row update gated on the registered
// status; it reports whether a row matched.
type AttendeeStore interface {
	FindByID(ctx context.Context, id string) (*models.Attendee, error)
	MarkCheckedIn(ctx context.Context, id string, at time.Time, actor string) (bool, error)
	SetTicketCode(ctx context.Context, id, codeHash string) error
}

// EventStore resolves event summaries for check-in responses.
type EventStore interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

// CheckInResult reports one check-in attempt. IsDuplicate marks a scan of an
// already checked-in attendee, which is a success, not an error.
type CheckInResult struct {
	Attendee    *models.Attendee
	Event       *models.Event
	IsDuplicate bool
}

// CheckInService exclusively owns attendee status for check-in transitions.
// checked_in is terminal and idempotent; cancelled never checks in.
type CheckInService struct {
	attendees AttendeeStore
	events    EventStore
	codec     *qrticket.Codec
	notifier  *Notifier
	now       func() time.Time
}

func NewCheckInService(attendees AttendeeStore, events EventStore, codec *qrticket.Codec, notifier *Notifier) *CheckInService {
	return &CheckInService{
		attendees: attendees,
		events:    events,
		codec:     codec,
		notifier:  notifier,
		now:       time.Now,
	}
}

// CheckIn applies the manual check-in transition for an attendee.
func (s *CheckInService) CheckIn(ctx context.Context, attendeeID, actor string) (*CheckInResult, error) {
	result, err := s.checkIn(ctx, attendeeID, actor)
	if err != nil {
		monitoring.TrackCheckIn("manual", "error")
		return nil, err
	}
	if result.IsDuplicate {
		monitoring.TrackCheckIn("manual", "duplicate")
	} else {
		monitoring.TrackCheckIn("manual", "success")
	}
	return result, nil
}

// CheckInByQR decodes and validates the scanned payload before any attendee
// state is touched, then applies the same transition as the manual path.
func (s *CheckInService) CheckInByQR(ctx context.Context, qrData, actor string) (*CheckInResult, error) {
	decoded := s.codec.Decode(qrData)
	if !decoded.Valid {
		monitoring.TrackCheckIn("qr", "rejected")
		if decoded.Expired {
			return nil, fmt.Errorf("%w: %s", status.ErrExpiredToken, decoded.Reason)
		}
		return nil, fmt.Errorf("%w: %s", status.ErrInvalidToken, decoded.Reason)
	}

	attendee, err := s.attendees.FindByID(ctx, decoded.Payload.AttendeeID)
	if err != nil {
		monitoring.TrackCheckIn("qr", "error")
		return nil, err
	}

	if attendee.EventID != decoded.Payload.EventID {
		monitoring.TrackCheckIn("qr", "rejected")
		return nil, fmt.Errorf("%w: event mismatch", status.ErrInvalidToken)
	}

	// Tickets issued with a verification code must present it back.
	if attendee.CodeHash != "" {
		if decoded.Payload.Code == "" || !utils.CompareHash([]byte(attendee.CodeHash), []byte(decoded.Payload.Code)) {
			monitoring.TrackCheckIn("qr", "rejected")
			return nil, fmt.Errorf("%w: verification code mismatch", status.ErrInvalidToken)
		}
	}

	result, err := s.checkIn(ctx, attendee.ID, actor)
	if err != nil {
		monitoring.TrackCheckIn("qr", "error")
		return nil, err
	}
	if result.IsDuplicate {
		monitoring.TrackCheckIn("qr", "duplicate")
	} else {
		monitoring.TrackCheckIn("qr", "success")
	}
	return result, nil
}

func (s *CheckInService) checkIn(ctx context.Context, attendeeID, actor string) (*CheckInResult, error) {
	attendee, err := s.attendees.FindByID(ctx, attendeeID)
	if err != nil {
		return nil, err
	}

	switch attendee.Status {
	case models.AttendeeStatusCheckedIn:
		// Duplicate scan: original check-in time stays untouched.
		return s.buildResult(ctx, attendee, true), nil

	case models.AttendeeStatusCancelled:
		return nil, fmt.Errorf("%w: attendee %s is cancelled", status.ErrInvalidState, attendeeID)
	}

	applied, err := s.attendees.MarkCheckedIn(ctx, attendeeID, s.now(), actor)
	if err != nil {
		return nil, fmt.Errorf("checkin: %s: %w", attendeeID, err)
	}

	// Re-read either way: the winner needs the stamped row, the loser of a
	// concurrent race needs to classify what the winner did.
	attendee, err = s.attendees.FindByID(ctx, attendeeID)
	if err != nil {
		return nil, err
	}

	if !applied {
		if attendee.Status == models.AttendeeStatusCheckedIn {
			return s.buildResult(ctx, attendee, true), nil
		}
		return nil, fmt.Errorf("%w: attendee %s is %s", status.ErrInvalidState, attendeeID, attendee.Status)
	}

	s.notifyCheckedIn(attendee)
	return s.buildResult(ctx, attendee, false), nil
}

// TicketQR renders the scannable ticket for an attendee as a PNG. When the
// ticket was issued with a verification code the caller must present it; it
// is embedded in the payload and checked again at scan time.
func (s *CheckInService) TicketQR(ctx context.Context, attendeeID, code string) ([]byte, error) {
	attendee, err := s.attendees.FindByID(ctx, attendeeID)
	if err != nil {
		return nil, err
	}

	if attendee.Status == models.AttendeeStatusCancelled {
		return nil, fmt.Errorf("%w: attendee %s is cancelled", status.ErrInvalidState, attendeeID)
	}

	if attendee.CodeHash != "" {
		if code == "" || !utils.CompareHash([]byte(attendee.CodeHash), []byte(code)) {
			return nil, fmt.Errorf("%w: verification code mismatch", status.ErrAuthorization)
		}
	}

	_, png, err := s.codec.EncodeImage(attendee.ID, attendee.EventID, code)
	if err != nil {
		return nil, fmt.Errorf("checkin: render ticket for %s: %w", attendeeID, err)
	}
	return png, nil
}

func (s *CheckInService) buildResult(ctx context.Context, attendee *models.Attendee, duplicate bool) *CheckInResult {
	result := &CheckInResult{Attendee: attendee, IsDuplicate: duplicate}

	if s.events != nil {
		event, err := s.events.FindByID(ctx, attendee.EventID)
		if err != nil {
			slog.Warn("checkin: event lookup failed", "eventId", attendee.EventID, "error", err)
		} else {
			result.Event = event
		}
	}
	return result
}

// notifyCheckedIn enqueues the confirmation; delivery failures never roll
// back or fail the check-in.
func (s *CheckInService) notifyCheckedIn(attendee *models.Attendee) {
	if s.notifier == nil {
		return
	}

	msg := Notification{
		Channel: fmt.Sprintf("event-%s", attendee.EventID),
		Message: map[string]any{
			"type":        "attendee_checked_in",
			"attendee_id": attendee.ID,
			"event_id":    attendee.EventID,
		},
	}
	if attendee.Email != "" {
		msg.To = attendee.Email
		msg.Subject = "You're checked in"
		msg.Body = fmt.Sprintf("<p>Hi %s,</p><p>Your check-in is confirmed. Enjoy the event!</p>", attendee.Name)
	}

	s.notifier.Enqueue(msg)
}
