package services

import "github.com/DALF-G/spidexMarket/internal/models"

type conversationKey struct {
	peerID    int64
	listingID int64
}

// LatestPerConversation reduces a newest-first message sequence to the first
// message seen for each (counterpart, listing) pair, preserving input order.
// Because the input is newest-first, the retained message is the latest of
// its conversation and the output is in recency order.
func LatestPerConversation(messages []models.MessageDetail, userID int64) []models.MessageDetail {
	seen := make(map[conversationKey]struct{}, len(messages))
	conversations := make([]models.MessageDetail, 0, len(messages))

	for _, message := range messages {
		peerID := message.SenderID
		if message.SenderID == userID {
			peerID = message.ReceiverID
		}

		key := conversationKey{peerID: peerID}
		if message.ListingID != nil {
			key.listingID = *message.ListingID
		}

		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		conversations = append(conversations, message)
	}

	return conversations
}
