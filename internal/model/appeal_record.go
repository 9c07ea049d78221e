package model

import "time"

// 申诉记录状态
const (
	AppealStatusPending  = 0 // 待处理
	AppealStatusApproved = 1 // 已通过
	AppealStatusRejected = 2 // 已驳回
)

// AppealRecord 申诉记录表 — 对应 appeal_records
// AppealUserID / OperatorID 为按 ID 引用的外键列（关联对象仅用于展示预加载，
// 不作为用户属性的第二数据源）。
// 不变式：status=0 时 DealTime/OperatorID/RealAddTime/FailedReason 均为空；
// 裁决后 RealAddTime 与 FailedReason 依 status 恰好填充其一。
type AppealRecord struct {
	AppealID        string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"appeal_id"`
	SignRecordID    string      `gorm:"type:uuid;not null"                             json:"sign_record_id"`
	AppealUserID    string      `gorm:"type:uuid;not null"                             json:"appeal_user_id"`
	RequireAddTime  int64       `gorm:"not null"                                       json:"require_add_time"` // 申请补偿时长（分钟）
	RealAddTime     *int64      `json:"real_add_time,omitempty"`                                               // 实际裁定时长（分钟），驳回时亦记录"考虑过的时长"
	Reason          string      `gorm:"type:text;not null"                             json:"reason"`
	AppealImageURLs StringArray `gorm:"type:text[]"                                    json:"appeal_image_urls,omitempty"`
	AppealTime      time.Time   `gorm:"not null"                                       json:"appeal_time"`
	DealTime        *time.Time  `json:"deal_time,omitempty"`
	Status          int         `gorm:"not null;default:0"                             json:"status"`
	FailedReason    *string     `gorm:"type:text"                                      json:"failed_reason,omitempty"`
	OperatorID      *string     `gorm:"type:uuid"                                      json:"operator_id,omitempty"`
	Term            string      `gorm:"type:varchar(20);not null"                      json:"term"`
	BaseModel

	// 关联
	AppealUser *User `gorm:"foreignKey:AppealUserID;references:UserID" json:"appeal_user,omitempty"`
	Operator   *User `gorm:"foreignKey:OperatorID;references:UserID"   json:"operator,omitempty"`
}

// TableName 指定表名
func (AppealRecord) TableName() string { return "appeal_records" }

// [自证通过] internal/model/appeal_record.go
