package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"groupcast/internal/models"
	"groupcast/internal/repository"
	"groupcast/internal/testutil"
)

// MockGroupRepository mocks GroupRepository
type MockGroupRepository struct {
	CreateFunc      func(ctx context.Context, group *models.Group) error
	GetByIDFunc     func(ctx context.Context, id int, ownerID string) (*models.Group, error)
	ListFunc        func(ctx context.Context, ownerID string, includeArchived bool, limit, offset int) ([]*models.GroupWithCounts, error)
	UpdateFunc      func(ctx context.Context, group *models.Group) error
	SetArchivedFunc func(ctx context.Context, id int, ownerID string, archived bool) error

	Calls map[string]int // Track method calls
}

func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{
		Calls: make(map[string]int),
	}
}

func (m *MockGroupRepository) Create(ctx context.Context, group *models.Group) error {
	m.Calls["Create"]++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, group)
	}
	group.ID = 1
	group.CreatedAt = time.Now()
	group.UpdatedAt = group.CreatedAt
	return nil
}

func (m *MockGroupRepository) GetByID(ctx context.Context, id int, ownerID string) (*models.Group, error) {
	m.Calls["GetByID"]++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id, ownerID)
	}
	group := testutil.NewTestGroup()
	group.ID = id
	return group, nil
}

func (m *MockGroupRepository) List(ctx context.Context, ownerID string, includeArchived bool, limit, offset int) ([]*models.GroupWithCounts, error) {
	m.Calls["List"]++
	if m.ListFunc != nil {
		return m.ListFunc(ctx, ownerID, includeArchived, limit, offset)
	}
	return []*models.GroupWithCounts{{Group: *testutil.NewTestGroup()}}, nil
}

func (m *MockGroupRepository) Update(ctx context.Context, group *models.Group) error {
	m.Calls["Update"]++
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, group)
	}
	return nil
}

func (m *MockGroupRepository) SetArchived(ctx context.Context, id int, ownerID string, archived bool) error {
	m.Calls["SetArchived"]++
	if m.SetArchivedFunc != nil {
		return m.SetArchivedFunc(ctx, id, ownerID, archived)
	}
	return nil
}

// MockContactRepository mocks ContactRepository
type MockContactRepository struct {
	CreateFunc   func(ctx context.Context, contact *models.Contact) error
	GetByIDFunc  func(ctx context.Context, id int, ownerID string) (*models.Contact, error)
	GetByIDsFunc func(ctx context.Context, ownerID string, ids []int) ([]*models.Contact, error)
	ListFunc     func(ctx context.Context, ownerID, search string, limit, offset int) ([]*models.Contact, error)
	UpdateFunc   func(ctx context.Context, contact *models.Contact) error
	DeleteFunc   func(ctx context.Context, id int, ownerID string) error

	Calls map[string]int
}

func NewMockContactRepository() *MockContactRepository {
	return &MockContactRepository{
		Calls: make(map[string]int),
	}
}

func (m *MockContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	m.Calls["Create"]++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, contact)
	}
	contact.ID = 1
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = contact.CreatedAt
	return nil
}

func (m *MockContactRepository) GetByID(ctx context.Context, id int, ownerID string) (*models.Contact, error) {
	m.Calls["GetByID"]++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id, ownerID)
	}
	return testutil.NewTestContactWithID(id), nil
}

func (m *MockContactRepository) GetByIDs(ctx context.Context, ownerID string, ids []int) ([]*models.Contact, error) {
	m.Calls["GetByIDs"]++
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ownerID, ids)
	}
	contacts := make([]*models.Contact, len(ids))
	for i, id := range ids {
		contacts[i] = testutil.NewTestContactWithID(id)
	}
	return contacts, nil
}

func (m *MockContactRepository) List(ctx context.Context, ownerID, search string, limit, offset int) ([]*models.Contact, error) {
	m.Calls["List"]++
	if m.ListFunc != nil {
		return m.ListFunc(ctx, ownerID, search, limit, offset)
	}
	return []*models.Contact{testutil.NewTestContact()}, nil
}

func (m *MockContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	m.Calls["Update"]++
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, contact)
	}
	return nil
}

func (m *MockContactRepository) Delete(ctx context.Context, id int, ownerID string) error {
	m.Calls["Delete"]++
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, ownerID)
	}
	return nil
}

// MockMemberRepository mocks MemberRepository
type MockMemberRepository struct {
	CreateFunc               func(ctx context.Context, member *models.Member) error
	GetByGroupAndContactFunc func(ctx context.Context, groupID, contactID int, ownerID string) (*models.MemberWithContact, error)
	ExistsInGroupFunc        func(ctx context.Context, groupID, contactID int) (bool, error)
	ListRosterFunc           func(ctx context.Context, db repository.DB, groupID int) ([]*models.MemberWithContact, error)
	UpdateFunc               func(ctx context.Context, member *models.Member) error
	DeleteFunc               func(ctx context.Context, groupID, contactID int, ownerID string) error

	Calls map[string]int
}

func NewMockMemberRepository() *MockMemberRepository {
	return &MockMemberRepository{
		Calls: make(map[string]int),
	}
}

func (m *MockMemberRepository) Create(ctx context.Context, member *models.Member) error {
	m.Calls["Create"]++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, member)
	}
	member.ID = 1
	member.CreatedAt = time.Now()
	member.UpdatedAt = member.CreatedAt
	return nil
}

func (m *MockMemberRepository) GetByGroupAndContact(ctx context.Context, groupID, contactID int, ownerID string) (*models.MemberWithContact, error) {
	m.Calls["GetByGroupAndContact"]++
	if m.GetByGroupAndContactFunc != nil {
		return m.GetByGroupAndContactFunc(ctx, groupID, contactID, ownerID)
	}
	return &models.MemberWithContact{
		Member:  *testutil.NewTestMember(),
		Contact: *testutil.NewTestContactWithID(contactID),
	}, nil
}

func (m *MockMemberRepository) ExistsInGroup(ctx context.Context, groupID, contactID int) (bool, error) {
	m.Calls["ExistsInGroup"]++
	if m.ExistsInGroupFunc != nil {
		return m.ExistsInGroupFunc(ctx, groupID, contactID)
	}
	return false, nil
}

func (m *MockMemberRepository) ListRoster(ctx context.Context, db repository.DB, groupID int) ([]*models.MemberWithContact, error) {
	m.Calls["ListRoster"]++
	if m.ListRosterFunc != nil {
		return m.ListRosterFunc(ctx, db, groupID)
	}
	return []*models.MemberWithContact{
		testutil.NewTestRosterEntry(1, true, testutil.StringPtr("+15550100001"), nil),
	}, nil
}

func (m *MockMemberRepository) Update(ctx context.Context, member *models.Member) error {
	m.Calls["Update"]++
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, member)
	}
	return nil
}

func (m *MockMemberRepository) Delete(ctx context.Context, groupID, contactID int, ownerID string) error {
	m.Calls["Delete"]++
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, groupID, contactID, ownerID)
	}
	return nil
}

// MockMessageRepository mocks MessageRepository
type MockMessageRepository struct {
	CreateFunc              func(ctx context.Context, message *models.Message, reminders []*models.Reminder) error
	GetByIDFunc             func(ctx context.Context, id int, ownerID string) (*models.Message, error)
	GetWithRemindersFunc    func(ctx context.Context, id int, ownerID string) (*models.MessageWithReminders, error)
	GetForDispatchFunc      func(ctx context.Context, db repository.DB, id int) (*models.Message, error)
	ListFunc                func(ctx context.Context, groupID int, filters repository.MessageFilters) ([]*models.Message, int, error)
	UpdateFunc              func(ctx context.Context, message *models.Message, reminders []*models.Reminder) error
	UpdateStatusFunc        func(ctx context.Context, db repository.DB, id int, status models.MessageStatus, lastError *string) error
	UpdateDispatchStateFunc func(ctx context.Context, db repository.DB, id int, status models.MessageStatus, hasRetried, isSentEarly bool) error
	UpdateScheduledDateFunc func(ctx context.Context, db repository.DB, id int, date time.Time) error
	DeleteFunc              func(ctx context.Context, id int, ownerID string) error

	Calls map[string]int
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		Calls: make(map[string]int),
	}
}

func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message, reminders []*models.Reminder) error {
	m.Calls["Create"]++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, message, reminders)
	}
	message.ID = 1
	message.CreatedAt = time.Now()
	message.UpdatedAt = message.CreatedAt
	return nil
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id int, ownerID string) (*models.Message, error) {
	m.Calls["GetByID"]++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id, ownerID)
	}
	msg := testutil.NewTestMessage()
	msg.ID = id
	return msg, nil
}

func (m *MockMessageRepository) GetWithReminders(ctx context.Context, id int, ownerID string) (*models.MessageWithReminders, error) {
	m.Calls["GetWithReminders"]++
	if m.GetWithRemindersFunc != nil {
		return m.GetWithRemindersFunc(ctx, id, ownerID)
	}
	msg := testutil.NewTestMessage()
	msg.ID = id
	return &models.MessageWithReminders{Message: *msg, Reminders: nil}, nil
}

func (m *MockMessageRepository) GetForDispatch(ctx context.Context, db repository.DB, id int) (*models.Message, error) {
	m.Calls["GetForDispatch"]++
	if m.GetForDispatchFunc != nil {
		return m.GetForDispatchFunc(ctx, db, id)
	}
	msg := testutil.NewTestMessage()
	msg.ID = id
	return msg, nil
}

func (m *MockMessageRepository) List(ctx context.Context, groupID int, filters repository.MessageFilters) ([]*models.Message, int, error) {
	m.Calls["List"]++
	if m.ListFunc != nil {
		return m.ListFunc(ctx, groupID, filters)
	}
	return []*models.Message{testutil.NewTestMessage()}, 1, nil
}

func (m *MockMessageRepository) Update(ctx context.Context, message *models.Message, reminders []*models.Reminder) error {
	m.Calls["Update"]++
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, message, reminders)
	}
	return nil
}

func (m *MockMessageRepository) UpdateStatus(ctx context.Context, db repository.DB, id int, status models.MessageStatus, lastError *string) error {
	m.Calls["UpdateStatus"]++
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, db, id, status, lastError)
	}
	return nil
}

func (m *MockMessageRepository) UpdateDispatchState(ctx context.Context, db repository.DB, id int, status models.MessageStatus, hasRetried, isSentEarly bool) error {
	m.Calls["UpdateDispatchState"]++
	if m.UpdateDispatchStateFunc != nil {
		return m.UpdateDispatchStateFunc(ctx, db, id, status, hasRetried, isSentEarly)
	}
	return nil
}

func (m *MockMessageRepository) UpdateScheduledDate(ctx context.Context, db repository.DB, id int, date time.Time) error {
	m.Calls["UpdateScheduledDate"]++
	if m.UpdateScheduledDateFunc != nil {
		return m.UpdateScheduledDateFunc(ctx, db, id, date)
	}
	return nil
}

func (m *MockMessageRepository) Delete(ctx context.Context, id int, ownerID string) error {
	m.Calls["Delete"]++
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, ownerID)
	}
	return nil
}

// MockSnapshotRepository mocks SnapshotRepository
type MockSnapshotRepository struct {
	CreateDispatchFunc   func(ctx context.Context, db repository.DB, dispatch *models.Dispatch) error
	CreateBatchFunc      func(ctx context.Context, db repository.DB, snapshots []*models.MemberSnapshot) error
	GetDispatchByKeyFunc func(ctx context.Context, db repository.DB, messageID int, key string) (*models.Dispatch, error)
	ListDispatchesFunc   func(ctx context.Context, messageID int) ([]*models.Dispatch, error)
	ListBatchFunc        func(ctx context.Context, batchID uuid.UUID) ([]*models.MemberSnapshot, error)

	Calls map[string]int
}

func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{
		Calls: make(map[string]int),
	}
}

func (m *MockSnapshotRepository) CreateDispatch(ctx context.Context, db repository.DB, dispatch *models.Dispatch) error {
	m.Calls["CreateDispatch"]++
	if m.CreateDispatchFunc != nil {
		return m.CreateDispatchFunc(ctx, db, dispatch)
	}
	dispatch.CreatedAt = time.Now()
	return nil
}

func (m *MockSnapshotRepository) CreateBatch(ctx context.Context, db repository.DB, snapshots []*models.MemberSnapshot) error {
	m.Calls["CreateBatch"]++
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, db, snapshots)
	}
	for i, snap := range snapshots {
		snap.ID = i + 1
		snap.CreatedAt = time.Now()
	}
	return nil
}

func (m *MockSnapshotRepository) GetDispatchByKey(ctx context.Context, db repository.DB, messageID int, key string) (*models.Dispatch, error) {
	m.Calls["GetDispatchByKey"]++
	if m.GetDispatchByKeyFunc != nil {
		return m.GetDispatchByKeyFunc(ctx, db, messageID, key)
	}
	return nil, nil
}

func (m *MockSnapshotRepository) ListDispatches(ctx context.Context, messageID int) ([]*models.Dispatch, error) {
	m.Calls["ListDispatches"]++
	if m.ListDispatchesFunc != nil {
		return m.ListDispatchesFunc(ctx, messageID)
	}
	return nil, nil
}

func (m *MockSnapshotRepository) ListBatch(ctx context.Context, batchID uuid.UUID) ([]*models.MemberSnapshot, error) {
	m.Calls["ListBatch"]++
	if m.ListBatchFunc != nil {
		return m.ListBatchFunc(ctx, batchID)
	}
	return nil, nil
}
