package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"groupcast/internal/models"
	"groupcast/internal/repository"
	"groupcast/internal/testutil"
	"groupcast/internal/validation"
)

// flowOwner keeps this suite's rows apart from other integration tests
// sharing the database
const flowOwner = "flow_test_user"

type flowEnv struct {
	db           *sql.DB
	groupRepo    repository.GroupRepository
	contactRepo  repository.ContactRepository
	memberRepo   repository.MemberRepository
	messageRepo  repository.MessageRepository
	snapshotRepo repository.SnapshotRepository
	svc          *MessageService
}

// setupFlowTest connects to the test database and wires real repositories
// under the message service
func setupFlowTest(t *testing.T) (*flowEnv, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	if db == nil {
		return nil, func() {}
	}

	cleanupFlowData(t, db)

	groupRepo := repository.NewGroupRepository(db)
	contactRepo := repository.NewContactRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	validator := validation.NewValidator(validation.DefaultPolicy())
	// The publisher stays nil: a failed publish only logs a warning, the
	// committed batch is what these tests inspect
	svc := NewMessageService(messageRepo, memberRepo, groupRepo, snapshotRepo, validator, nil, db)

	env := &flowEnv{
		db:           db,
		groupRepo:    groupRepo,
		contactRepo:  contactRepo,
		memberRepo:   memberRepo,
		messageRepo:  messageRepo,
		snapshotRepo: snapshotRepo,
		svc:          svc,
	}

	cleanup := func() {
		cleanupFlowData(t, db)
		db.Close()
	}

	return env, cleanup
}

// cleanupFlowData removes this suite's groups and contacts; members,
// messages, dispatches and snapshots cascade
func cleanupFlowData(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, query := range []string{
		"DELETE FROM groups WHERE owner_id = $1",
		"DELETE FROM contacts WHERE owner_id = $1",
	} {
		if _, err := db.Exec(query, flowOwner); err != nil {
			t.Logf("Cleanup warning: %v", err)
		}
	}
}

// seedFlowGroup creates a group with three members: two deliverable
// recipients and one opted out
func seedFlowGroup(t *testing.T, env *flowEnv) (*models.Group, []*models.Contact) {
	t.Helper()
	ctx := context.Background()

	group := &models.Group{
		OwnerID:  flowOwner,
		Name:     "Flow Test Group",
		UseSMS:   true,
		UseEmail: true,
	}
	testutil.AssertNoError(t, env.groupRepo.Create(ctx, group))

	seeds := []struct {
		name      string
		phone     *string
		email     *string
		recipient bool
	}{
		{"Alice Mwangi", testutil.StringPtr("+15550100001"), testutil.StringPtr("alice@example.com"), true},
		{"Bob Otieno", testutil.StringPtr("+15550100002"), nil, true},
		{"Carol Njeri", testutil.StringPtr("+15550100003"), nil, false},
	}

	contacts := make([]*models.Contact, 0, len(seeds))
	for _, s := range seeds {
		contact := &models.Contact{OwnerID: flowOwner, Name: s.name, Phone: s.phone, Email: s.email}
		testutil.AssertNoError(t, env.contactRepo.Create(ctx, contact))
		contacts = append(contacts, contact)

		member := &models.Member{
			GroupID:     group.ID,
			ContactID:   contact.ID,
			IsRecipient: s.recipient,
			CreatedBy:   flowOwner,
			UpdatedBy:   flowOwner,
		}
		testutil.AssertNoError(t, env.memberRepo.Create(ctx, member))
	}

	return group, contacts
}

// seedFlowMessage creates a plain one-off message in the given status
func seedFlowMessage(t *testing.T, env *flowEnv, groupID int, status models.MessageStatus) *models.Message {
	t.Helper()
	message := &models.Message{
		GroupID: groupID,
		OwnerID: flowOwner,
		Content: "Practice moved to 6pm",
		Status:  status,
		Type:    models.MessageTypeDefault,
	}
	testutil.AssertNoError(t, env.messageRepo.Create(context.Background(), message, nil))
	return message
}

// TestFlow_DispatchFreezesRoster verifies the snapshot keeps the roster as it
// was at dispatch time, whatever happens to members and contacts afterwards
func TestFlow_DispatchFreezesRoster(t *testing.T) {
	env, cleanup := setupFlowTest(t)
	if env == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	group, contacts := seedFlowGroup(t, env)
	message := seedFlowMessage(t, env, group.ID, models.MessageStatusDraft)

	// Dispatch: only the two deliverable members make the batch
	result, err := env.svc.Dispatch(ctx, message.ID, flowOwner, "")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.RecipientCount, 2)
	testutil.AssertEqual(t, result.Status, models.MessageStatusPending)
	testutil.AssertEqual(t, result.Replayed, false)

	snapshots, err := env.snapshotRepo.ListBatch(ctx, result.BatchID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(snapshots), 2)

	// Mutate the roster after the dispatch
	contacts[0].Name = "Alice Renamed"
	testutil.AssertNoError(t, env.contactRepo.Update(ctx, contacts[0]))
	testutil.AssertNoError(t, env.memberRepo.Delete(ctx, group.ID, contacts[1].ID, flowOwner))

	// The frozen batch must not move
	after, err := env.snapshotRepo.ListBatch(ctx, result.BatchID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(after), 2)

	names := map[string]bool{}
	for _, snap := range after {
		names[snap.ContactName] = true
	}
	if !names["Alice Mwangi"] {
		t.Error("Expected snapshot to keep the contact name frozen at dispatch time")
	}
	if names["Alice Renamed"] {
		t.Error("Snapshot must not follow contact edits")
	}

	// The recipients endpoint serves the same frozen rows
	recipients, err := env.svc.GetRecipients(ctx, message.ID, flowOwner, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(recipients.Recipients), 2)
	if recipients.BatchID == nil || *recipients.BatchID != result.BatchID {
		t.Error("Expected the recipients endpoint to default to the dispatched batch")
	}
}

// TestFlow_WorkerDeliversAndMarksSent walks the delivery steps the worker
// performs after a dispatch lands on the queue
func TestFlow_WorkerDeliversAndMarksSent(t *testing.T) {
	env, cleanup := setupFlowTest(t)
	if env == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	group, _ := seedFlowGroup(t, env)
	message := seedFlowMessage(t, env, group.ID, models.MessageStatusDraft)

	result, err := env.svc.Dispatch(ctx, message.ID, flowOwner, "")
	testutil.AssertNoError(t, err)

	// 1. Fetch the frozen batch the way the worker does
	snapshots, err := env.snapshotRepo.ListBatch(ctx, result.BatchID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(snapshots), 2)

	// 2. Send to every recipient at full success
	senderSvc := NewSenderService(1.0)
	for _, snap := range snapshots {
		if snap.ContactPhone == nil {
			t.Fatalf("Expected a phone number on snapshot for member %d", snap.MemberID)
		}
		sendResult := senderSvc.Send(models.ChannelSMS, *snap.ContactPhone, message.Content)
		testutil.AssertEqual(t, sendResult.Success, true)
	}

	// 3. Record the outcome on the message
	err = env.messageRepo.UpdateStatus(ctx, env.db, message.ID, models.MessageStatusSent, nil)
	testutil.AssertNoError(t, err)

	updated, err := env.messageRepo.GetByID(ctx, message.ID, flowOwner)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, updated.Status, models.MessageStatusSent)
	testutil.AssertEqual(t, updated.HasRetried, false)
	if updated.LastError != nil {
		t.Errorf("Expected no last error after a clean delivery, got %q", *updated.LastError)
	}
}

// TestFlow_RetryLatchesHasRetried verifies a re-dispatch of a failed message
// latches the retry flag for good
func TestFlow_RetryLatchesHasRetried(t *testing.T) {
	env, cleanup := setupFlowTest(t)
	if env == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	group, _ := seedFlowGroup(t, env)
	message := seedFlowMessage(t, env, group.ID, models.MessageStatusDraft)

	_, err := env.svc.Dispatch(ctx, message.ID, flowOwner, "")
	testutil.AssertNoError(t, err)

	// Delivery fails wholly
	senderSvc := NewSenderService(0.0)
	sendResult := senderSvc.Send(models.ChannelSMS, "+15550100001", message.Content)
	testutil.AssertEqual(t, sendResult.Success, false)

	errMsg := sendResult.Error.Error()
	testutil.AssertNoError(t, env.messageRepo.UpdateStatus(ctx, env.db, message.ID, models.MessageStatusFailed, &errMsg))

	// Re-dispatching the failed message is the retry
	second, err := env.svc.Dispatch(ctx, message.ID, flowOwner, "")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, second.Status, models.MessageStatusPending)

	afterRetry, err := env.messageRepo.GetByID(ctx, message.ID, flowOwner)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, afterRetry.HasRetried, true)

	// The flag survives the message eventually going out
	testutil.AssertNoError(t, env.messageRepo.UpdateStatus(ctx, env.db, message.ID, models.MessageStatusSent, nil))
	final, err := env.messageRepo.GetByID(ctx, message.ID, flowOwner)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, final.Status, models.MessageStatusSent)
	testutil.AssertEqual(t, final.HasRetried, true)

	// Both attempts are on record as separate batches
	dispatches, err := env.snapshotRepo.ListDispatches(ctx, message.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(dispatches), 2)
}

// TestFlow_EarlySendLatch verifies is_sent_early sticks once set, even when a
// later dispatch is on time
func TestFlow_EarlySendLatch(t *testing.T) {
	env, cleanup := setupFlowTest(t)
	if env == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	group, _ := seedFlowGroup(t, env)

	date := time.Now().Add(48 * time.Hour)
	message := &models.Message{
		GroupID:       group.ID,
		OwnerID:       flowOwner,
		Content:       "Fundraiser reminder",
		Status:        models.MessageStatusPending,
		Type:          models.MessageTypeScheduled,
		IsScheduled:   true,
		ScheduledDate: &date,
	}
	testutil.AssertNoError(t, env.messageRepo.Create(ctx, message, nil))

	// Dispatching two days ahead of schedule latches the flag
	first, err := env.svc.Dispatch(ctx, message.ID, flowOwner, "")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, first.SentEarly, true)

	// Roll the date into the past and dispatch again: this one is on time,
	// but the stored flag must stay latched
	past := time.Now().Add(-time.Hour)
	testutil.AssertNoError(t, env.messageRepo.UpdateScheduledDate(ctx, env.db, message.ID, past))

	second, err := env.svc.Dispatch(ctx, message.ID, flowOwner, "")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, second.SentEarly, false)

	row, err := env.messageRepo.GetByID(ctx, message.ID, flowOwner)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, row.IsSentEarly, true)
}

// TestFlow_ReplaySameKey verifies a repeated idempotency key returns the
// original batch instead of snapshotting again
func TestFlow_ReplaySameKey(t *testing.T) {
	env, cleanup := setupFlowTest(t)
	if env == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	group, _ := seedFlowGroup(t, env)
	message := seedFlowMessage(t, env, group.ID, models.MessageStatusDraft)

	first, err := env.svc.Dispatch(ctx, message.ID, flowOwner, "march-reminder")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, first.Replayed, false)

	second, err := env.svc.Dispatch(ctx, message.ID, flowOwner, "march-reminder")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, second.Replayed, true)
	testutil.AssertEqual(t, second.BatchID, first.BatchID)
	testutil.AssertEqual(t, second.RecipientCount, first.RecipientCount)

	// Still a single batch with the original snapshot rows
	dispatches, err := env.snapshotRepo.ListDispatches(ctx, message.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(dispatches), 1)

	snapshots, err := env.snapshotRepo.ListBatch(ctx, first.BatchID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(snapshots), 2)

	// A fresh key snapshots a new batch
	third, err := env.svc.Dispatch(ctx, message.ID, flowOwner, "april-reminder")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, third.Replayed, false)
	if third.BatchID == first.BatchID {
		t.Error("Expected a fresh key to create a new batch")
	}

	dispatches, err = env.snapshotRepo.ListDispatches(ctx, message.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(dispatches), 2)
}
