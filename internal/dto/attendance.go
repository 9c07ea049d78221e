package dto

// ── 签到模块 DTO ──

// SignOutRequest 签退请求
type SignOutRequest struct {
	RecordID string `json:"record_id" binding:"required,uuid"`
}

// AttendanceRecordResponse 签到记录响应
type AttendanceRecordResponse struct {
	RecordID   string `json:"record_id"`
	UserID     string `json:"user_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time,omitempty"`
	Status     int    `json:"status"`
	OperatorID string `json:"operator_id,omitempty"`
	Term       string `json:"term"`
}

// SessionView 签到记录与成员展示属性的联合视图（非存储实体）
type SessionView struct {
	RecordID     string `json:"record_id"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	UserDept     string `json:"user_dept"`
	UserLocation string `json:"user_location"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time,omitempty"`
	Status       int    `json:"status"`
	Term         string `json:"term"`
}

// RecordListRequest 个人记录列表查询参数
type RecordListRequest struct {
	Term string `form:"term"`
}
