package dto

// ── 用户模块 DTO ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Dept      string `json:"dept"`
	DeptCode  int    `json:"dept_code"`
	Location  string `json:"location"`
	TotalTime int64  `json:"total_time"` // 累计时长（分钟）
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	Page     int    `form:"page"      binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Dept     string `form:"dept"`
}

// ModifyTimeRequest 时长调整请求（内部接口，凭携带的凭证授权）
type ModifyTimeRequest struct {
	Mode       string `json:"mode"       binding:"required,oneof=add reduce"`
	AddTime    int64  `json:"add_time"   binding:"required"` // 调整时长（分钟）
	Credential string `json:"credential" binding:"required"`
	Remark     string `json:"remark"     binding:"omitempty,max=200"`
}
