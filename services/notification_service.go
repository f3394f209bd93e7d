package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideLoopAPI/internal/apperrors"
	"rideLoopAPI/internal/store"
	"rideLoopAPI/internal/types/challenge"
	"rideLoopAPI/internal/types/notification"
	"rideLoopAPI/utils"
)

type NotificationService struct {
	db         *pgxpool.Pool
	users      store.UserStore
	dispatcher *NotificationDispatcher
}

func NewNotificationService(db *pgxpool.Pool, users store.UserStore) *NotificationService {
	service := &NotificationService{
		db:    db,
		users: users,
	}
	service.dispatcher = NewNotificationDispatcher(service)
	return service
}

// SetPushProvider injects the real FCM provider from main.
func (s *NotificationService) SetPushProvider(provider PushNotificationProvider) {
	s.dispatcher.SetPushProvider(provider)
}

// ChallengeCompleted implements CompletionNotifier for the challenge service.
func (s *NotificationService) ChallengeCompleted(ctx context.Context, userID uuid.UUID, ch *challenge.Challenge) error {
	return utils.ChallengeCompleted(ctx, s, userID, ch)
}

func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	dataJSON, _ := json.Marshal(req.Data)

	query := `
		INSERT INTO notifications (user_id, type, status, title, body, data, link)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	notif := &notification.Notification{
		UserID: req.UserID,
		Type:   req.Type,
		Status: notification.StatusPending,
		Title:  req.Title,
		Body:   req.Body,
		Data:   req.Data,
		Link:   req.Link,
	}

	err := s.db.QueryRow(
		ctx, query,
		req.UserID, req.Type, notification.StatusPending, req.Title, req.Body, dataJSON, req.Link,
	).Scan(&notif.ID, &notif.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	tokens, err := s.getDeviceTokens(ctx, req.UserID)
	if err != nil {
		tokens = nil
	}

	go s.dispatcher.DispatchNotification(context.Background(), notif, tokens)

	return notif, nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	userID, err := s.users.GetUserIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * pageSize
	whereClause := "WHERE user_id = $1"
	if unreadOnly {
		whereClause += " AND read_at IS NULL"
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, type, status, title, body, data, link, read_at, created_at
		FROM notifications
		%s
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, whereClause)

	rows, err := s.db.Query(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		notif := &notification.Notification{}
		var dataStr []byte
		err := rows.Scan(
			&notif.ID, &notif.UserID, &notif.Type, &notif.Status,
			&notif.Title, &notif.Body, &dataStr, &notif.Link, &notif.ReadAt, &notif.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		json.Unmarshal(dataStr, &notif.Data)
		notifications = append(notifications, notif)
	}

	var unreadCount, totalCount int
	s.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL", userID).Scan(&unreadCount)
	s.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE user_id = $1", userID).Scan(&totalCount)

	return &notification.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unreadCount,
		TotalCount:    totalCount,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.users.GetUserIDByClerkID(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	var unreadCount int
	query := "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL"
	if err := s.db.QueryRow(ctx, query, userID).Scan(&unreadCount); err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return unreadCount, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	userID, err := s.users.GetUserIDByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	query := `
		UPDATE notifications
		SET read_at = NOW()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL
	`
	result, err := s.db.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("notification not found or already read")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) error {
	userID, err := s.users.GetUserIDByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, "UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL", userID)
	return err
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req notification.RegisterDeviceRequest) error {
	userID, err := s.users.GetUserIDByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notification_devices (user_id, token, platform, added_at, last_used)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id, token)
		DO UPDATE SET last_used = NOW()
	`
	if _, err := s.db.Exec(ctx, query, userID, req.Token, req.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) getDeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx,
		"SELECT token, platform, added_at, last_used FROM notification_devices WHERE user_id = $1",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.AddedAt, &t.LastUsed); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) markAsSent(ctx context.Context, id uuid.UUID) {
	s.db.Exec(ctx, "UPDATE notifications SET status = $1 WHERE id = $2", notification.StatusSent, id)
}

func (s *NotificationService) markAsFailed(ctx context.Context, id uuid.UUID) {
	s.db.Exec(ctx, "UPDATE notifications SET status = $1 WHERE id = $2", notification.StatusFailed, id)
}
