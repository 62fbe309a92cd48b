package messaging

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/services/marketplace"
)

const (
	maxContentLength    = 4000
	defaultConversation = 50
)

type MessageInput struct {
	ReceiverID uuid.UUID  `json:"receiver_id"`
	BookingID  *uuid.UUID `json:"booking_id,omitempty"`
	Content    string     `json:"content"`
}

// Service delivers direct messages between users.
type Service struct {
	store marketplace.Store
	log   zerolog.Logger
}

func NewService(store marketplace.Store, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &Service{store: store, log: log.With().Str("component", "messaging").Logger()}, nil
}

// Send stores a message. A message tied to a booking must be between the booking's tourist and guide.
func (s *Service) Send(ctx context.Context, senderID uuid.UUID, in MessageInput) (marketplace.Message, error) {
	content := strings.TrimSpace(in.Content)
	switch {
	case content == "":
		return marketplace.Message{}, apperr.Invalid("content is required")
	case utf8.RuneCountInString(content) > maxContentLength:
		return marketplace.Message{}, apperr.Invalid("content exceeds %d characters", maxContentLength)
	case in.ReceiverID == senderID:
		return marketplace.Message{}, apperr.Invalid("cannot send a message to yourself")
	}

	msg := marketplace.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: in.ReceiverID,
		BookingID:  in.BookingID,
		Content:    content,
	}
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		sender, err := tx.GetUser(ctx, senderID)
		if err != nil {
			return err
		}
		if !sender.IsActive {
			return apperr.Policy("user %s is banned", senderID)
		}
		if _, err := tx.GetUser(ctx, in.ReceiverID); err != nil {
			return err
		}
		if in.BookingID != nil {
			if err := checkParticipants(ctx, tx, *in.BookingID, senderID, in.ReceiverID); err != nil {
				return err
			}
		}
		return tx.CreateMessage(ctx, &msg)
	})
	if err != nil {
		return marketplace.Message{}, err
	}
	s.log.Debug().Str("message_id", msg.ID.String()).Str("receiver_id", msg.ReceiverID.String()).Msg("message sent")
	return msg, nil
}

func checkParticipants(ctx context.Context, tx marketplace.Tx, bookingID, a, b uuid.UUID) error {
	booking, err := tx.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	guide, err := tx.GetGuide(ctx, booking.GuideID)
	if err != nil {
		return err
	}
	parties := map[uuid.UUID]bool{booking.TouristID: true, guide.UserID: true}
	if !parties[a] || !parties[b] {
		return apperr.Policy("only the tourist and guide of booking %s can message about it", bookingID)
	}
	return nil
}

// Conversation returns up to limit messages between two users, newest first.
func (s *Service) Conversation(ctx context.Context, userID, partnerID uuid.UUID, limit int) ([]marketplace.Message, error) {
	if limit <= 0 {
		limit = defaultConversation
	}
	var out []marketplace.Message
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		out, err = tx.ListConversation(ctx, userID, partnerID, limit)
		return err
	})
	return out, err
}

// Conversations lists every partner of userID with the latest message and unread count.
func (s *Service) Conversations(ctx context.Context, userID uuid.UUID) ([]marketplace.ConversationSummary, error) {
	var out []marketplace.ConversationSummary
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		out, err = tx.Conversations(ctx, userID)
		return err
	})
	return out, err
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		n, err = tx.CountUnread(ctx, userID)
		return err
	})
	return n, err
}

// MarkConversationRead flags every message partnerID sent to userID as read.
func (s *Service) MarkConversationRead(ctx context.Context, userID, partnerID uuid.UUID) (int64, error) {
	var n int64
	err := s.store.InTx(ctx, func(tx marketplace.Tx) error {
		var err error
		n, err = tx.MarkRead(ctx, userID, partnerID)
		return err
	})
	return n, err
}
