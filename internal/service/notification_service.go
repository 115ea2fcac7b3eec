package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/pkg/jobs"
)

const jobTypeScanNotification = "scan_notification"

// OwnerNotification tells an owner that one of their items was scanned.
type OwnerNotification struct {
	OwnerID    string
	OwnerEmail string
	OwnerName  string
	ItemID     string
	ItemName   string
	QRCode     string
	Scan       models.Scan
}

// Notifier delivers owner notifications, e.g. by email.
type Notifier interface {
	NotifyOwner(ctx context.Context, n OwnerNotification) error
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyOwner(_ context.Context, msg OwnerNotification) error {
	n.logger.Info("owner notification",
		zap.String("owner_id", msg.OwnerID),
		zap.String("item_id", msg.ItemID),
		zap.String("qr_code", msg.QRCode),
		zap.String("scan_id", msg.Scan.ID),
		zap.Bool("has_location", msg.Scan.Latitude != nil),
		zap.Bool("has_message", msg.Scan.Message != nil),
	)
	return nil
}

type ownerLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type scanNotice struct {
	OwnerID  string
	ItemID   string
	ItemName string
	QRCode   string
	Scan     models.Scan
}

// NotificationService fans scan events out to owners on a background queue.
// Owner contact details are loaded inside the job, never on the request path.
type NotificationService struct {
	queue    *jobs.Queue
	users    ownerLookup
	notifier Notifier
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewNotificationService builds the service and its queue. Call Start before
// the first NotifyScan.
func NewNotificationService(users ownerLookup, notifier Notifier, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{users: users, notifier: notifier, metrics: metrics, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s.queue = jobs.NewQueue("owner-notifications", s.handle, cfg)
	return s
}

func (s *NotificationService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop drains pending notifications.
func (s *NotificationService) Stop() { s.queue.Stop() }

// NotifyScan schedules an owner notification. It never blocks and never
// fails the caller; a rejected job is logged and counted.
func (s *NotificationService) NotifyScan(item *models.Item, scan *models.Scan) {
	job := jobs.Job{
		ID:   scan.ID,
		Type: jobTypeScanNotification,
		Payload: scanNotice{
			OwnerID:  item.OwnerID,
			ItemID:   item.ID,
			ItemName: item.Name,
			QRCode:   item.QRCode,
			Scan:     *scan,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification("dropped")
		s.logger.Warn("owner notification dropped", zap.String("scan_id", scan.ID), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(scanNotice)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}

	owner, err := s.users.FindByID(ctx, notice.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("owner gone, notification skipped", zap.String("item_id", notice.ItemID))
			return nil
		}
		s.metrics.RecordNotification("failed")
		return fmt.Errorf("load owner: %w", err)
	}

	err = s.notifier.NotifyOwner(ctx, OwnerNotification{
		OwnerID:    owner.ID,
		OwnerEmail: owner.Email,
		OwnerName:  owner.Name,
		ItemID:     notice.ItemID,
		ItemName:   notice.ItemName,
		QRCode:     notice.QRCode,
		Scan:       notice.Scan,
	})
	if err != nil {
		s.metrics.RecordNotification("failed")
		return err
	}
	s.metrics.RecordNotification("sent")
	return nil
}
