package messaging

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/services/marketplace"
	"seatrail/services/marketplace/markettest"
	"seatrail/services/marketplace/memstore"
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc, err := NewService(store, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return svc, store
}

func TestConversations(t *testing.T) {
	svc, store := newService(t)
	alice := markettest.User(t, store, marketplace.RoleUser)
	bob := markettest.User(t, store, marketplace.RoleUser)
	carol := markettest.User(t, store, marketplace.RoleUser)
	ctx := context.Background()

	send := func(from, to marketplace.User, text string) {
		t.Helper()
		if _, err := svc.Send(ctx, from.ID, MessageInput{ReceiverID: to.ID, Content: text}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	send(bob, alice, "hi")
	send(bob, alice, "are you there?")
	send(alice, carol, "lunch?")
	send(carol, alice, "sure")
	send(alice, bob, "yes")

	convs, err := svc.Conversations(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("Conversations() = %d, want 2", len(convs))
	}
	if convs[0].PartnerID != bob.ID || convs[0].LastMessage != "yes" || convs[0].Unread != 2 {
		t.Fatalf("first conversation = %+v", convs[0])
	}
	if convs[1].PartnerID != carol.ID || convs[1].LastMessage != "sure" || convs[1].Unread != 1 {
		t.Fatalf("second conversation = %+v", convs[1])
	}

	if n, _ := svc.UnreadCount(ctx, alice.ID); n != 3 {
		t.Fatalf("UnreadCount() = %d, want 3", n)
	}
	if n, err := svc.MarkConversationRead(ctx, alice.ID, bob.ID); err != nil || n != 2 {
		t.Fatalf("MarkConversationRead() = %d, %v", n, err)
	}
	if n, _ := svc.UnreadCount(ctx, alice.ID); n != 1 {
		t.Fatalf("UnreadCount() after read = %d, want 1", n)
	}

	msgs, err := svc.Conversation(ctx, alice.ID, bob.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Content != "yes" || msgs[1].Content != "are you there?" {
		t.Fatalf("Conversation() = %+v", msgs)
	}
}

func TestSendValidation(t *testing.T) {
	svc, store := newService(t)
	tourist := markettest.User(t, store, marketplace.RoleUser)
	stranger := markettest.User(t, store, marketplace.RoleUser)
	guideUser, guide := markettest.Guide(t, store, marketplace.VerificationVerified)
	booking := markettest.Booking(t, store, markettest.Tour(t, store, guide), tourist, marketplace.BookingConfirmed)
	ctx := context.Background()

	tests := []struct {
		name string
		from marketplace.User
		in   MessageInput
		want apperr.Kind
	}{
		{name: "empty", from: tourist, in: MessageInput{ReceiverID: guideUser.ID, Content: "  "}, want: apperr.KindInvalid},
		{name: "too long", from: tourist, in: MessageInput{ReceiverID: guideUser.ID, Content: strings.Repeat("x", maxContentLength+1)}, want: apperr.KindInvalid},
		{name: "self", from: tourist, in: MessageInput{ReceiverID: tourist.ID, Content: "me"}, want: apperr.KindInvalid},
		{name: "booking outsider", from: stranger, in: MessageInput{ReceiverID: guideUser.ID, BookingID: &booking.ID, Content: "hello"}, want: apperr.KindPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(ctx, tt.from.ID, tt.in)
			if got := apperr.KindOf(err); err == nil || got != tt.want {
				t.Fatalf("Send() error = %v (kind %v), want %v", err, got, tt.want)
			}
		})
	}

	if _, err := svc.Send(ctx, tourist.ID, MessageInput{ReceiverID: guideUser.ID, BookingID: &booking.ID, Content: "see you"}); err != nil {
		t.Fatalf("Send(booking) error = %v", err)
	}
}
