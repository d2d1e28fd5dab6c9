package types

import "time"

// Registration 一条演出报名记录（真实数据存储在飞书多维表格，这里是领域投影）
type Registration struct {
	RegistrationID string    `json:"registration_id"` // 业务编号，创建时生成
	RecordID       string    `json:"record_id"`       // 飞书记录 ID
	Name           string    `json:"name"`            // 报名人姓名
	ProgramName    string    `json:"program_name"`    // 节目名称
	ProgramType    string    `json:"program_type"`    // 节目类型
	Performers     string    `json:"performers"`      // 演职人员
	Contact        string    `json:"contact"`         // QQ 联系方式
	Phone          string    `json:"phone"`           // 手机号
	Description    string    `json:"description"`     // 节目简介
	Status         string    `json:"status"`          // 审核状态
	ReviewNote     string    `json:"review_note"`     // 审核备注
	SubmittedAt    time.Time `json:"submitted_at"`
}

// ListResult 报名列表查询结果
type ListResult struct {
	Items   []*Registration `json:"items"`
	HasMore bool            `json:"has_more"`
	Total   int             `json:"total"`
}
