package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"groupcast/internal/config"
	"groupcast/internal/models"
	"groupcast/internal/queue"
	"groupcast/internal/service"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Verify database connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Connected to database")

	// Initialize services
	senderSvc := service.NewSenderService(0.95) // 95% success rate
	log.Println("✅ Services initialized")

	// Connect to RabbitMQ
	conn, err := queue.NewConnection(cfg.GetRabbitMQURL())
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	log.Println("✅ Connected to RabbitMQ")

	// Create delivery handler
	handler := createDeliveryHandler(db, senderSvc)

	// Start consumer
	consumer, err := queue.NewConsumer(conn, cfg.Queue.Name, handler)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}

	err = consumer.Start()
	if err != nil {
		log.Fatalf("Failed to start consumer: %v", err)
	}
	log.Printf("✅ Worker started, consuming from queue: %s", cfg.Queue.Name)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down gracefully...")

	// Stop consumer
	if err := consumer.Stop(); err != nil {
		log.Printf("Error stopping consumer: %v", err)
	}

	// Close connections
	conn.Close()
	db.Close()

	log.Println("✅ Worker stopped")
}

// createDeliveryHandler creates the dispatch processing handler. Returning an
// error requeues the job, so only transient problems propagate out; anything
// permanent is recorded on the message and acked away.
func createDeliveryHandler(db *sql.DB, senderSvc *service.SenderService) queue.DeliveryHandler {
	return func(job *queue.DeliveryJob) error {
		ctx := context.Background()

		log.Printf("📨 Processing message ID %d (batch %s)", job.MessageID, job.BatchID)

		batchID, err := uuid.Parse(job.BatchID)
		if err != nil {
			log.Printf("❌ Malformed batch ID %q, dropping job: %v", job.BatchID, err)
			return nil
		}

		// Fetch message with its group's channel switches
		message, group, err := fetchDeliveryData(ctx, db, job.MessageID)
		if err != nil {
			if err == sql.ErrNoRows {
				log.Printf("⚠️  Message ID %d no longer exists, dropping job", job.MessageID)
				return nil
			}
			log.Printf("❌ Failed to fetch delivery data: %v", err)
			return err
		}

		// A re-dispatch replaces the previous batch; redeliveries of the old
		// batch must not go out on top of the new one.
		latestBatch, err := fetchLatestBatchID(ctx, db, job.MessageID)
		if err != nil {
			log.Printf("❌ Failed to fetch latest batch: %v", err)
			return err
		}
		if latestBatch != batchID {
			log.Printf("⚠️  Batch %s superseded by %s, dropping job", batchID, latestBatch)
			return nil
		}

		if message.Status == models.MessageStatusSent {
			log.Printf("⚠️  Message ID %d already sent, dropping job", job.MessageID)
			return nil
		}

		// A failed status here means this job came back through the queue
		// after a wholly-failed attempt: this run is the one retry.
		retrying := message.Status == models.MessageStatusFailed
		if retrying {
			if err := markRetryAttempt(ctx, db, job.MessageID); err != nil {
				log.Printf("❌ Failed to record retry attempt: %v", err)
				return err
			}
		}

		snapshots, err := fetchBatchSnapshots(ctx, db, batchID)
		if err != nil {
			log.Printf("❌ Failed to fetch batch snapshots: %v", err)
			return err
		}
		if len(snapshots) == 0 {
			log.Printf("⚠️  Batch %s has no recipients, dropping job", batchID)
			return nil
		}

		channels := group.EnabledChannels()
		if len(channels) == 0 {
			log.Printf("❌ Group %d has no connected channels", group.ID)
			return recordOutcome(ctx, db, message, 0, "no delivery channels connected", retrying)
		}

		// Deliver to every recipient on every connected channel
		delivered := 0
		lastError := ""
		for _, snap := range snapshots {
			reached := false
			for _, channel := range channels {
				address := addressFor(snap, channel)
				if address == "" {
					continue
				}

				result := senderSvc.Send(channel, address, message.Content)
				if result.Success {
					reached = true
				} else {
					lastError = result.Error.Error()
					log.Printf("❌ Send failed for %s via %s: %s", address, channel, lastError)
				}
			}
			if reached {
				delivered++
			}
		}

		if delivered > 0 {
			log.Printf("✅ Message ID %d delivered to %d/%d recipients", job.MessageID, delivered, len(snapshots))
		}
		return recordOutcome(ctx, db, message, delivered, lastError, retrying)
	}
}

// recordOutcome writes the batch result back onto the message. One reached
// recipient makes the whole batch sent; a wholly-failed batch goes back
// through the queue once before it stays failed.
func recordOutcome(ctx context.Context, db *sql.DB, message *models.Message, delivered int, lastError string, retrying bool) error {
	if delivered > 0 {
		if err := markMessageSent(ctx, db, message); err != nil {
			log.Printf("❌ Failed to update message success: %v", err)
			return err
		}
		return nil
	}

	if lastError == "" {
		// No send was even attempted: every snapshot lacked an address for
		// the channels this group has connected
		lastError = "no recipient reachable on the connected channels"
	}
	if err := markMessageFailed(ctx, db, message.ID, lastError); err != nil {
		log.Printf("❌ Failed to update message failure: %v", err)
		return err
	}

	if retrying {
		log.Printf("⚠️  Message ID %d failed again after retry, giving up", message.ID)
		return nil
	}
	return fmt.Errorf("all sends failed: %s", lastError)
}

// addressFor picks the snapshot field a channel delivers to
func addressFor(snap *models.MemberSnapshot, channel models.Channel) string {
	switch channel {
	case models.ChannelEmail:
		if snap.ContactEmail != nil {
			return *snap.ContactEmail
		}
	default:
		// SMS and GroupMe both go out over the phone number
		if snap.ContactPhone != nil {
			return *snap.ContactPhone
		}
	}
	return ""
}

// fetchDeliveryData fetches the message joined with its group's channel switches
func fetchDeliveryData(ctx context.Context, db *sql.DB, messageID int) (*models.Message, *models.Group, error) {
	query := `
		SELECT
			m.id, m.group_id, m.owner_id, m.content, m.subject, m.status,
			m.is_scheduled, m.scheduled_date, m.is_recurring, m.recurring_num,
			m.recurring_period, m.has_retried, m.is_sent_early,
			g.id, g.name, g.use_sms, g.use_email, g.use_groupme
		FROM messages m
		JOIN groups g ON m.group_id = g.id
		WHERE m.id = $1
	`

	var message models.Message
	var group models.Group

	err := db.QueryRowContext(ctx, query, messageID).Scan(
		&message.ID,
		&message.GroupID,
		&message.OwnerID,
		&message.Content,
		&message.Subject,
		&message.Status,
		&message.IsScheduled,
		&message.ScheduledDate,
		&message.IsRecurring,
		&message.RecurringNum,
		&message.RecurringPeriod,
		&message.HasRetried,
		&message.IsSentEarly,
		&group.ID,
		&group.Name,
		&group.UseSMS,
		&group.UseEmail,
		&group.UseGroupMe,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to fetch delivery data: %w", err)
	}

	return &message, &group, nil
}

// fetchLatestBatchID fetches the newest dispatch batch for a message
func fetchLatestBatchID(ctx context.Context, db *sql.DB, messageID int) (uuid.UUID, error) {
	query := `
		SELECT batch_id
		FROM dispatches
		WHERE message_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var batchID uuid.UUID
	err := db.QueryRowContext(ctx, query, messageID).Scan(&batchID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to fetch latest batch: %w", err)
	}

	return batchID, nil
}

// fetchBatchSnapshots fetches the frozen recipient rows of one batch
func fetchBatchSnapshots(ctx context.Context, db *sql.DB, batchID uuid.UUID) ([]*models.MemberSnapshot, error) {
	query := `
		SELECT id, message_id, batch_id, member_id, contact_name,
			contact_phone, contact_email, is_recipient, notes, created_at
		FROM member_snapshots
		WHERE batch_id = $1
		ORDER BY id
	`

	rows, err := db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batch snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.MemberSnapshot
	for rows.Next() {
		var snap models.MemberSnapshot
		err := rows.Scan(
			&snap.ID,
			&snap.MessageID,
			&snap.BatchID,
			&snap.MemberID,
			&snap.ContactName,
			&snap.ContactPhone,
			&snap.ContactEmail,
			&snap.IsRecipient,
			&snap.Notes,
			&snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, &snap)
	}

	return snapshots, rows.Err()
}

// markRetryAttempt latches has_retried before the retry run starts
func markRetryAttempt(ctx context.Context, db *sql.DB, messageID int) error {
	query := `
		UPDATE messages
		SET has_retried = TRUE, updated_at = NOW()
		WHERE id = $1
	`

	_, err := db.ExecContext(ctx, query, messageID)
	if err != nil {
		return fmt.Errorf("failed to record retry attempt: %w", err)
	}

	return nil
}

// markMessageSent updates the message as sent. A recurring message also rolls
// its send date forward one cadence step so the next occurrence can dispatch.
func markMessageSent(ctx context.Context, db *sql.DB, message *models.Message) error {
	var nextDate *time.Time
	if message.IsRecurring {
		base := time.Now()
		if message.ScheduledDate != nil {
			base = *message.ScheduledDate
		}
		nextDate = message.NextOccurrence(base)
	}

	query := `
		UPDATE messages
		SET status = 'sent',
			last_error = NULL,
			scheduled_date = COALESCE($2, scheduled_date),
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := db.ExecContext(ctx, query, message.ID, nextDate)
	if err != nil {
		return fmt.Errorf("failed to update message success: %w", err)
	}

	return nil
}

// markMessageFailed updates the message as failed with the last send error
func markMessageFailed(ctx context.Context, db *sql.DB, messageID int, errorMsg string) error {
	query := `
		UPDATE messages
		SET status = 'failed',
			last_error = $2,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := db.ExecContext(ctx, query, messageID, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to update message failure: %w", err)
	}

	return nil
}
