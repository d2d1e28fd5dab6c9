package types

// 审核状态词表。状态由飞书表格持有，这里只约束取值与通知策略。
const (
	StatusPending          = "pending"
	StatusFirstApproved    = "一审通过"
	StatusFirstRejected    = "初审驳回"
	StatusSecondApproved   = "二审通过"
	StatusSecondRejected   = "二审驳回"
	StatusFinalApproved    = "终审通过"
	StatusFinalRejected    = "终审驳回"
	StatusIndependent      = "团队独立立项"
	StatusContactRefused   = "拒绝联系"
	StatusContactUnreached = "无法联系"
)

// AllStatuses 全部合法状态
var AllStatuses = []string{
	StatusPending,
	StatusFirstApproved,
	StatusFirstRejected,
	StatusSecondApproved,
	StatusSecondRejected,
	StatusFinalApproved,
	StatusFinalRejected,
	StatusIndependent,
	StatusContactRefused,
	StatusContactUnreached,
}

// notifiable 需要邮件通知的状态（各审级的通过/驳回及独立立项）
var notifiable = map[string]bool{
	StatusFirstApproved:  true,
	StatusFirstRejected:  true,
	StatusSecondApproved: true,
	StatusSecondRejected: true,
	StatusFinalApproved:  true,
	StatusFinalRejected:  true,
	StatusIndependent:    true,
}

// IsValidStatus 状态是否在词表内
func IsValidStatus(s string) bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsNotifiable 目标状态是否触发申请人通知
func IsNotifiable(s string) bool {
	return notifiable[s]
}
