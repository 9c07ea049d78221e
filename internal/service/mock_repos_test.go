package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/roselle-luo/KexieSignSystem/internal/model"
	"github.com/roselle-luo/KexieSignSystem/internal/repository"
	pkgerrors "github.com/roselle-luo/KexieSignSystem/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.UserID == "" {
		user.UserID = "user-" + user.StudentID
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByStudentID(_ context.Context, studentID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.StudentID == studentID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, dept string, offset, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.User
	for _, u := range m.users {
		if dept != "" && u.Dept != dept {
			continue
		}
		all = append(all, *u)
	}
	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListDepartmentManagers(_ context.Context, deptCode int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var managers []model.User
	for _, u := range m.users {
		if u.DeptCode == deptCode && u.Role == "manager" {
			managers = append(managers, *u)
		}
	}
	return managers, nil
}

func (m *mockUserRepo) AdjustTotalTime(_ context.Context, id string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.TotalTime += delta
	return nil
}

// ── Mock AttendanceRecordRepository ──

type mockAttendanceRecordRepo struct {
	mu      sync.Mutex
	records map[string]*model.AttendanceRecord
	users   *mockUserRepo // Preload("User") 的数据来源
}

func newMockAttendanceRecordRepo(users *mockUserRepo) *mockAttendanceRecordRepo {
	return &mockAttendanceRecordRepo{
		records: make(map[string]*model.AttendanceRecord),
		users:   users,
	}
}

func (m *mockAttendanceRecordRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// 模拟部分唯一索引：同一用户最多一条在线记录
	if record.Status == model.AttendanceStatusOnline {
		for _, r := range m.records {
			if r.UserID == record.UserID && r.Status == model.AttendanceStatusOnline {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if record.RecordID == "" {
		record.RecordID = "rec-" + record.UserID
	}
	m.records[record.RecordID] = record
	return nil
}

func (m *mockAttendanceRecordRepo) GetByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRecordRepo) GetOpenByUserID(_ context.Context, userID string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == userID && r.Status == model.AttendanceStatusOnline {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRecordRepo) Close(_ context.Context, recordID string, endTime time.Time, operatorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	if !ok || r.Status != model.AttendanceStatusOnline {
		// 守护条件落空与记录不存在同样表现为 0 行更新
		return pkgerrors.ErrOptimisticLock
	}
	r.EndTime = &endTime
	r.Status = model.AttendanceStatusOffline
	r.OperatorID = &operatorID
	return nil
}

func (m *mockAttendanceRecordRepo) ListByUserAndTerm(_ context.Context, userID, term string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.UserID == userID && r.Term == term {
			rec := *r
			if u, ok := m.users.users[r.UserID]; ok {
				rec.User = u
			}
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})
	return result, nil
}

func (m *mockAttendanceRecordRepo) ListOnline(_ context.Context) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.Status == model.AttendanceStatusOnline {
			rec := *r
			if u, ok := m.users.users[r.UserID]; ok {
				rec.User = u
			}
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *mockAttendanceRecordRepo) ListTerms(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var terms []string
	for _, r := range m.records {
		if r.UserID == userID && !seen[r.Term] {
			seen[r.Term] = true
			terms = append(terms, r.Term)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(terms)))
	return terms, nil
}

// ── Mock AppealRecordRepository ──

type mockAppealRecordRepo struct {
	mu      sync.Mutex
	appeals map[string]*model.AppealRecord
	users   *mockUserRepo
}

func newMockAppealRecordRepo(users *mockUserRepo) *mockAppealRecordRepo {
	return &mockAppealRecordRepo{
		appeals: make(map[string]*model.AppealRecord),
		users:   users,
	}
}

func (m *mockAppealRecordRepo) Create(_ context.Context, record *model.AppealRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.AppealID == "" {
		record.AppealID = "appeal-" + record.SignRecordID
	}
	m.appeals[record.AppealID] = record
	return nil
}

func (m *mockAppealRecordRepo) GetByID(_ context.Context, id string) (*model.AppealRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.appeals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	rec := *r
	if u, ok := m.users.users[r.AppealUserID]; ok {
		rec.AppealUser = u
	}
	return &rec, nil
}

func (m *mockAppealRecordRepo) Resolve(_ context.Context, record *model.AppealRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.appeals[record.AppealID]
	if !ok || r.Status != model.AppealStatusPending {
		return pkgerrors.ErrOptimisticLock
	}
	// 模拟部分唯一索引：同一签到记录不允许第二条通过的申诉
	if record.Status == model.AppealStatusApproved {
		for _, other := range m.appeals {
			if other.AppealID != r.AppealID &&
				other.SignRecordID == r.SignRecordID &&
				other.Status == model.AppealStatusApproved {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	r.Status = record.Status
	r.OperatorID = record.OperatorID
	r.DealTime = record.DealTime
	r.RealAddTime = record.RealAddTime
	r.FailedReason = record.FailedReason
	return nil
}

func (m *mockAppealRecordRepo) match(r *model.AppealRecord, f *repository.AppealFilters) bool {
	if f == nil {
		return true
	}
	if f.AppealID != "" && r.AppealID != f.AppealID {
		return false
	}
	if f.Term != "" && r.Term != f.Term {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.Operator != "" && (r.OperatorID == nil || *r.OperatorID != f.Operator) {
		return false
	}
	if f.Name != "" || f.Department != "" || f.StudentID != "" {
		u, ok := m.users.users[r.AppealUserID]
		if !ok {
			return false
		}
		if f.Name != "" && !strings.Contains(u.Name, f.Name) {
			return false
		}
		if f.Department != "" && u.Dept != f.Department {
			return false
		}
		if f.StudentID != "" && u.StudentID != f.StudentID {
			return false
		}
	}
	return true
}

func (m *mockAppealRecordRepo) List(_ context.Context, f *repository.AppealFilters, offset, limit int) ([]model.AppealRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.AppealRecord
	for _, r := range m.appeals {
		if !m.match(r, f) {
			continue
		}
		rec := *r
		if u, ok := m.users.users[r.AppealUserID]; ok {
			rec.AppealUser = u
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].AppealTime.After(all[j].AppealTime)
	})
	if limit <= 0 {
		return all, nil
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *mockAppealRecordRepo) Count(_ context.Context, f *repository.AppealFilters) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, r := range m.appeals {
		if m.match(r, f) {
			total++
		}
	}
	return total, nil
}

func (m *mockAppealRecordRepo) CountApprovedBySignRecord(_ context.Context, signRecordID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, r := range m.appeals {
		if r.SignRecordID == signRecordID && r.Status == model.AppealStatusApproved {
			count++
		}
	}
	return count, nil
}

// ── Mock Mailer ──

type sentMail struct {
	To       string
	Template string
	Subject  string
	Data     map[string]string
}

// mockMailer 记录每次投递；failFor 中的收件人投递失败
type mockMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]error
}

func newMockMailer() *mockMailer {
	return &mockMailer{failFor: make(map[string]error)}
}

func (m *mockMailer) Send(to, templateKey, subject string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[to]; ok {
		return err
	}
	m.sent = append(m.sent, sentMail{To: to, Template: templateKey, Subject: subject, Data: data})
	return nil
}

func (m *mockMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var to []string
	for _, s := range m.sent {
		to = append(to, s.To)
	}
	return to
}

// ── Mock TimeCreditAdjuster ──

type adjusterCall struct {
	Mode       string
	UserID     string
	Amount     int64
	Credential string
	Remark     string
}

type mockAdjuster struct {
	mu    sync.Mutex
	calls []adjusterCall
	err   error
}

func (m *mockAdjuster) ModifyTime(_ context.Context, mode, userID string, amount int64, credential, remark string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, adjusterCall{
		Mode: mode, UserID: userID, Amount: amount,
		Credential: credential, Remark: remark,
	})
	return nil
}

// [自证通过] internal/service/mock_repos_test.go
