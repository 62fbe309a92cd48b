package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"seatrail/services/bookings"
	"seatrail/services/marketplace"
	"seatrail/services/messaging"
)

func (a *API) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var in bookings.BookingInput
	if err := decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	booking, err := a.svc.Bookings.Create(r.Context(), actor(r), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"booking": booking})
}

func (a *API) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	a.moveBooking(w, r, a.svc.Bookings.Confirm)
}

func (a *API) handleCompleteBooking(w http.ResponseWriter, r *http.Request) {
	a.moveBooking(w, r, a.svc.Bookings.Complete)
}

func (a *API) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	a.moveBooking(w, r, a.svc.Bookings.Cancel)
}

func (a *API) moveBooking(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, bookingID uuid.UUID) (marketplace.Booking, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	booking, err := fn(r.Context(), actor(r), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"booking": booking})
}

func (a *API) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		Amount    float64 `json:"amount"`
		Reference string  `json:"provider_reference"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	payment, err := a.svc.Bookings.RecordPayment(r.Context(), actor(r), id, req.Amount, req.Reference)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"payment": payment})
}

func (a *API) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in messaging.MessageInput
	if err := decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	msg, err := a.svc.Messaging.Send(r.Context(), actor(r), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"message": msg})
}

func (a *API) handleConversations(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Messaging.Conversations(r.Context(), actor(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversations": orEmpty(list)})
}

func (a *API) handleConversation(w http.ResponseWriter, r *http.Request) {
	partner, err := pathID(r, "partnerID")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	msgs, err := a.svc.Messaging.Conversation(r.Context(), actor(r), partner, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": orEmpty(msgs)})
}

func (a *API) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	partner, err := pathID(r, "partnerID")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	n, err := a.svc.Messaging.MarkConversationRead(r.Context(), actor(r), partner)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"marked": n})
}

func (a *API) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.Messaging.UnreadCount(r.Context(), actor(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"unread": n})
}
