package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"eventhub/internal/models"
	"eventhub/internal/qrticket"
	"eventhub/internal/status"
	"eventhub/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkInSecret = "test-qr-secret"

func setupCheckInService(t *testing.T, attendees ...*models.Attendee) (*CheckInService, *memAttendeeStore, *qrticket.Codec) {
	t.Helper()

	store := newMemAttendeeStore(attendees...)
	events := newMemEventStore(&models.Event{ID: "evt_1", Name: "GopherConf", Venue: "Hall A"})
	codec := qrticket.NewCodec(checkInSecret, 0)
	notifier := NewNotifier(&recordingSender{}, &recordingPublisher{}, 16)

	return NewCheckInService(store, events, codec, notifier), store, codec
}

func registeredAttendee() *models.Attendee {
	return &models.Attendee{
		ID:      "att_1",
		EventID: "evt_1",
		Name:    "Asha",
		Email:   "asha@example.com",
		Status:  models.AttendeeStatusRegistered,
	}
}

func TestCheckIn_Manual(t *testing.T) {
	service, _, _ := setupCheckInService(t, registeredAttendee())

	result, err := service.CheckIn(context.Background(), "att_1", "staff_1")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, models.AttendeeStatusCheckedIn, result.Attendee.Status)
	assert.NotNil(t, result.Attendee.CheckInTime)
	assert.Equal(t, "staff_1", result.Attendee.CheckedInBy)
	require.NotNil(t, result.Event)
	assert.Equal(t, "GopherConf", result.Event.Name)
}

func TestCheckIn_DuplicateKeepsOriginalTime(t *testing.T) {
	service, _, _ := setupCheckInService(t, registeredAttendee())
	ctx := context.Background()

	first, err := service.CheckIn(ctx, "att_1", "staff_1")
	require.NoError(t, err)
	firstTime := *first.Attendee.CheckInTime

	time.Sleep(5 * time.Millisecond)

	second, err := service.CheckIn(ctx, "att_1", "staff_2")
	require.NoError(t, err)
	assert.True(t, second.IsDuplicate)
	assert.Equal(t, firstTime, *second.Attendee.CheckInTime)
	assert.Equal(t, "staff_1", second.Attendee.CheckedInBy)
}

func TestCheckIn_CancelledRejected(t *testing.T) {
	a := registeredAttendee()
	a.Status = models.AttendeeStatusCancelled
	service, _, _ := setupCheckInService(t, a)

	_, err := service.CheckIn(context.Background(), "att_1", "staff_1")
	assert.ErrorIs(t, err, status.ErrInvalidState)
}

func TestCheckIn_UnknownAttendee(t *testing.T) {
	service, _, _ := setupCheckInService(t)

	_, err := service.CheckIn(context.Background(), "att_missing", "staff_1")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestCheckInByQR_Valid(t *testing.T) {
	service, _, codec := setupCheckInService(t, registeredAttendee())

	raw, err := codec.Encode("att_1", "evt_1", "")
	require.NoError(t, err)

	result, err := service.CheckInByQR(context.Background(), raw, "staff_1")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, models.AttendeeStatusCheckedIn, result.Attendee.Status)
}

func TestCheckInByQR_Expired(t *testing.T) {
	service, _, _ := setupCheckInService(t, registeredAttendee())

	// Encode with a clock 25 hours in the past.
	staleCodec := qrticket.NewCodec(checkInSecret, 0).
		WithClock(func() time.Time { return time.Now().Add(-25 * time.Hour) })
	raw, err := staleCodec.Encode("att_1", "evt_1", "")
	require.NoError(t, err)

	_, err = service.CheckInByQR(context.Background(), raw, "staff_1")
	assert.ErrorIs(t, err, status.ErrExpiredToken)
}

func TestCheckInByQR_AlmostExpiredStillValid(t *testing.T) {
	service, _, _ := setupCheckInService(t, registeredAttendee())

	staleCodec := qrticket.NewCodec(checkInSecret, 0).
		WithClock(func() time.Time { return time.Now().Add(-23 * time.Hour) })
	raw, err := staleCodec.Encode("att_1", "evt_1", "")
	require.NoError(t, err)

	result, err := service.CheckInByQR(context.Background(), raw, "staff_1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendeeStatusCheckedIn, result.Attendee.Status)
}

func TestCheckInByQR_Tampered(t *testing.T) {
	service, _, codec := setupCheckInService(t, registeredAttendee())

	raw, err := codec.Encode("att_1", "evt_1", "")
	require.NoError(t, err)

	// Swap the attendee id without re-signing.
	forged := strings.Replace(raw, "att_1", "att_2", 1)

	_, err = service.CheckInByQR(context.Background(), forged, "staff_1")
	assert.ErrorIs(t, err, status.ErrInvalidToken)
}

func TestCheckInByQR_MalformedPayload(t *testing.T) {
	service, _, _ := setupCheckInService(t, registeredAttendee())

	_, err := service.CheckInByQR(context.Background(), "not json at all", "staff_1")
	assert.ErrorIs(t, err, status.ErrInvalidToken)
}

func TestCheckInByQR_EventMismatch(t *testing.T) {
	a := registeredAttendee()
	a.EventID = "evt_other"
	service, _, codec := setupCheckInService(t, a)

	raw, err := codec.Encode("att_1", "evt_1", "")
	require.NoError(t, err)

	_, err = service.CheckInByQR(context.Background(), raw, "staff_1")
	assert.ErrorIs(t, err, status.ErrInvalidToken)
}

func TestCheckInByQR_VerificationCode(t *testing.T) {
	a := registeredAttendee()
	hash, err := utils.GenerateHash([]byte("ABC123"))
	require.NoError(t, err)
	a.CodeHash = hash

	service, _, codec := setupCheckInService(t, a)
	ctx := context.Background()

	// Missing code is rejected.
	raw, err := codec.Encode("att_1", "evt_1", "")
	require.NoError(t, err)
	_, err = service.CheckInByQR(ctx, raw, "staff_1")
	assert.ErrorIs(t, err, status.ErrInvalidToken)

	// Wrong code is rejected.
	raw, err = codec.Encode("att_1", "evt_1", "WRONG1")
	require.NoError(t, err)
	_, err = service.CheckInByQR(ctx, raw, "staff_1")
	assert.ErrorIs(t, err, status.ErrInvalidToken)

	// Matching code checks in.
	raw, err = codec.Encode("att_1", "evt_1", "ABC123")
	require.NoError(t, err)
	result, err := service.CheckInByQR(ctx, raw, "staff_1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendeeStatusCheckedIn, result.Attendee.Status)
}

func TestCheckIn_NotifierFailureDoesNotFail(t *testing.T) {
	store := newMemAttendeeStore(registeredAttendee())
	events := newMemEventStore(&models.Event{ID: "evt_1", Name: "GopherConf"})
	codec := qrticket.NewCodec(checkInSecret, 0)

	sender := &recordingSender{fail: true}
	notifier := NewNotifier(sender, &recordingPublisher{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifier.Start(ctx)

	service := NewCheckInService(store, events, codec, notifier)

	result, err := service.CheckIn(ctx, "att_1", "staff_1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendeeStatusCheckedIn, result.Attendee.Status)
}

func TestTicketQR(t *testing.T) {
	a := registeredAttendee()
	hash, err := utils.GenerateHash([]byte("ABC123"))
	require.NoError(t, err)
	a.CodeHash = hash

	service, _, _ := setupCheckInService(t, a)
	ctx := context.Background()

	// Wrong code is an authorization failure.
	_, err = service.TicketQR(ctx, "att_1", "WRONG1")
	assert.ErrorIs(t, err, status.ErrAuthorization)

	png, err := service.TicketQR(ctx, "att_1", "ABC123")
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestTicketQR_CancelledRejected(t *testing.T) {
	a := registeredAttendee()
	a.Status = models.AttendeeStatusCancelled
	service, _, _ := setupCheckInService(t, a)

	_, err := service.TicketQR(context.Background(), "att_1", "")
	assert.ErrorIs(t, err, status.ErrInvalidState)
}
