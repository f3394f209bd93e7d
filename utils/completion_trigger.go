package utils

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"rideLoopAPI/internal/types/challenge"
	"rideLoopAPI/internal/types/notification"
)

// NotificationCreator is the single method the completion trigger needs from
// the notification service.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error)
}

// ChallengeCompleted emits the challenge_completed event for a user. It is
// called only after the completed flag durably flipped false->true, so firing
// it is inherently once-per-(user, challenge).
func ChallengeCompleted(ctx context.Context, notifier NotificationCreator, userID uuid.UUID, ch *challenge.Challenge) error {
	link := fmt.Sprintf("rideloop://challenges/%s", ch.Code)

	req := &notification.CreateNotificationRequest{
		UserID: userID,
		Type:   notification.TypeChallengeCompleted,
		Title:  "Challenge complete!",
		Body:   fmt.Sprintf("You finished \"%s\". Nice riding.", ch.Title),
		Data: map[string]any{
			"challenge_id":   ch.ID.String(),
			"challenge_code": ch.Code,
			"title":          ch.Title,
		},
		Link: &link,
	}

	if _, err := notifier.CreateNotification(ctx, req); err != nil {
		log.Printf("Failed to create completion notification for user %s: %v", userID, err)
		return err
	}
	return nil
}
