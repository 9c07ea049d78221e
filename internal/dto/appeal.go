package dto

// ── 申诉模块 DTO ──

// FileAppealRequest 提交申诉请求
type FileAppealRequest struct {
	SignRecordID    string   `json:"sign_record_id"    binding:"required,uuid"`
	RequireAddTime  int64    `json:"require_add_time"  binding:"required,min=1"` // 申请补偿时长（分钟）
	Reason          string   `json:"reason"            binding:"required,max=500"`
	AppealImageURLs []string `json:"appeal_image_urls" binding:"omitempty,max=9,dive,url"`
}

// AppealQueryRequest 申诉列表查询条件
// 所有过滤条件可选，组合为 AND 语义
type AppealQueryRequest struct {
	AppealID   string `form:"appeal_id"`
	Name       string `form:"name"`
	Department string `form:"department"`
	Term       string `form:"term"`
	StudentID  string `form:"student_id"`
	Status     *int   `form:"status"  binding:"omitempty,oneof=0 1 2"`
	Operator   string `form:"operator"`
	PageNum    int    `form:"page_num"`
	PageSize   int    `form:"page_size"`
}

// NormalizedPage 返回规范化后的页码与页大小
// 页码 <1 归一为 1；页大小 <1 归一为 0，表示不分页（一页返回全部）
func (q *AppealQueryRequest) NormalizedPage() (pageNum, pageSize int) {
	pageNum = q.PageNum
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize = q.PageSize
	if pageSize < 1 {
		pageSize = 0
	}
	return pageNum, pageSize
}

// DealAppealRequest 申诉裁决请求
type DealAppealRequest struct {
	AppealID     string `json:"appeal_id"     binding:"required,uuid"`
	Result       *bool  `json:"result"        binding:"required"`              // true=通过 false=驳回
	RealAddTime  int64  `json:"real_add_time" binding:"omitempty,min=0"`       // 实际裁定时长（分钟）
	FailedReason string `json:"failed_reason" binding:"omitempty,max=500"`     // 驳回原因
}

// AppealResponse 申诉记录响应
type AppealResponse struct {
	AppealID        string   `json:"appeal_id"`
	SignRecordID    string   `json:"sign_record_id"`
	AppealUserID    string   `json:"appeal_user_id"`
	AppealUserName  string   `json:"appeal_user_name,omitempty"`
	AppealUserDept  string   `json:"appeal_user_dept,omitempty"`
	RequireAddTime  int64    `json:"require_add_time"`
	RealAddTime     *int64   `json:"real_add_time,omitempty"`
	Reason          string   `json:"reason"`
	AppealImageURLs []string `json:"appeal_image_urls,omitempty"`
	AppealTime      string   `json:"appeal_time"`
	DealTime        string   `json:"deal_time,omitempty"`
	Status          int      `json:"status"`
	FailedReason    string   `json:"failed_reason,omitempty"`
	OperatorID      string   `json:"operator_id,omitempty"`
	Term            string   `json:"term"`
}

// FileAppealResponse 提交申诉响应
type FileAppealResponse struct {
	AppealID string `json:"appeal_id"`
}

// DealAppealResponse 申诉裁决响应
type DealAppealResponse struct {
	AppealID string `json:"appeal_id"`
	Status   int    `json:"status"`
	Message  string `json:"message"`
}
