package handlers

import (
	"log/slog"
	"net/http"

	"eventhub/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type CheckInHandler struct {
	app            *pocketbase.PocketBase
	checkInService *services.CheckInService
}

func NewCheckInHandler(app *pocketbase.PocketBase, checkInService *services.CheckInService) *CheckInHandler {
	return &CheckInHandler{
		app:            app,
		checkInService: checkInService,
	}
}

func checkInResponse(result *services.CheckInResult) map[string]any {
	resp := map[string]any{
		"status":    "success",
		"duplicate": result.IsDuplicate,
		"attendee":  result.Attendee,
	}
	if result.Event != nil {
		resp["event"] = result.Event
	}
	return resp
}

// Scan - Check in an attendee from a scanned QR payload
func (h *CheckInHandler) Scan(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		QRData string `json:"qr_data"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.QRData == "" {
		return apis.NewBadRequestError("QR data is required", nil)
	}

	result, err := h.checkInService.CheckInByQR(e.Request.Context(), req.QRData, e.Auth.Id)
	if err != nil {
		slog.Warn("h.checkInService.CheckInByQR()", "actor", e.Auth.Id, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, checkInResponse(result))
}

// ManualCheckIn - Check in an attendee by id, bypassing the QR path
func (h *CheckInHandler) ManualCheckIn(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	attendeeID := e.Request.PathValue("attendeeId")
	if attendeeID == "" {
		return apis.NewBadRequestError("Attendee ID is required", nil)
	}

	result, err := h.checkInService.CheckIn(e.Request.Context(), attendeeID, e.Auth.Id)
	if err != nil {
		slog.Warn("h.checkInService.CheckIn()", "attendeeId", attendeeID, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, checkInResponse(result))
}

// TicketQR - Render the attendee's ticket QR as a PNG
func (h *CheckInHandler) TicketQR(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	attendeeID := e.Request.PathValue("attendeeId")
	if attendeeID == "" {
		return apis.NewBadRequestError("Attendee ID is required", nil)
	}
	code := e.Request.URL.Query().Get("code")

	png, err := h.checkInService.TicketQR(e.Request.Context(), attendeeID, code)
	if err != nil {
		slog.Warn("h.checkInService.TicketQR()", "attendeeId", attendeeID, "error", err)
		return apiError(err)
	}

	e.Response.Header().Set("Content-Type", "image/png")
	e.Response.WriteHeader(http.StatusOK)
	_, err = e.Response.Write(png)
	return err
}
