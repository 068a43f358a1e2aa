package services

import (
	"testing"
	"time"

	"github.com/DALF-G/spidexMarket/internal/models"
)

func detailAt(id, senderID, receiverID int64, listingID *int64, at time.Time) models.MessageDetail {
	return models.MessageDetail{
		Message: models.Message{
			ID:         id,
			SenderID:   senderID,
			ReceiverID: receiverID,
			ListingID:  listingID,
			Content:    "hello",
			CreatedAt:  at,
		},
	}
}

func listingRef(id int64) *int64 {
	return &id
}

func TestLatestPerConversationKeepsNewestPerPeer(t *testing.T) {
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	// Newest-first, as the store returns them.
	input := []models.MessageDetail{
		detailAt(4, 2, 1, nil, base.Add(3*time.Minute)),
		detailAt(3, 1, 3, nil, base.Add(2*time.Minute)),
		detailAt(2, 1, 2, nil, base.Add(time.Minute)),
		detailAt(1, 2, 1, nil, base),
	}

	result := LatestPerConversation(input, 1)

	if len(result) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(result))
	}
	if result[0].ID != 4 || result[1].ID != 3 {
		t.Fatalf("expected messages 4 and 3, got %d and %d", result[0].ID, result[1].ID)
	}
}

func TestLatestPerConversationSeparatesListings(t *testing.T) {
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	input := []models.MessageDetail{
		detailAt(3, 2, 1, listingRef(9), base.Add(2*time.Minute)),
		detailAt(2, 2, 1, listingRef(8), base.Add(time.Minute)),
		detailAt(1, 1, 2, nil, base),
	}

	result := LatestPerConversation(input, 1)

	// Same peer, but three distinct conversations: listing 9, listing 8, none.
	if len(result) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(result))
	}
	for i, want := range []int64{3, 2, 1} {
		if result[i].ID != want {
			t.Fatalf("position %d: expected message %d, got %d", i, want, result[i].ID)
		}
	}
}

func TestLatestPerConversationBuyerSellerScenario(t *testing.T) {
	// Buyer 1 asks seller 2 about listing 123, seller replies later.
	t1 := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(5 * time.Minute)

	newestFirst := []models.MessageDetail{
		detailAt(2, 2, 1, listingRef(123), t2),
		detailAt(1, 1, 2, listingRef(123), t1),
	}

	forBuyer := LatestPerConversation(newestFirst, 1)
	forSeller := LatestPerConversation(newestFirst, 2)

	if len(forBuyer) != 1 || forBuyer[0].ID != 2 {
		t.Fatalf("buyer view: expected single entry with message 2, got %+v", forBuyer)
	}
	if len(forSeller) != 1 || forSeller[0].ID != 2 {
		t.Fatalf("seller view: expected single entry with message 2, got %+v", forSeller)
	}
}

func TestLatestPerConversationSelfMessages(t *testing.T) {
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	input := []models.MessageDetail{
		detailAt(2, 1, 1, nil, base.Add(time.Minute)),
		detailAt(1, 1, 1, nil, base),
	}

	result := LatestPerConversation(input, 1)

	if len(result) != 1 || result[0].ID != 2 {
		t.Fatalf("expected single self conversation with message 2, got %+v", result)
	}
}

func TestLatestPerConversationEmptyInput(t *testing.T) {
	result := LatestPerConversation(nil, 1)
	if len(result) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
