package model

import "time"

// HistoryAction 文档操作类型
type HistoryAction string

const (
	HistoryActionCreate          HistoryAction = "create"
	HistoryActionUpdate          HistoryAction = "update"
	HistoryActionSubmit          HistoryAction = "submit"
	HistoryActionSchedule        HistoryAction = "schedule"
	HistoryActionCancelSchedule  HistoryAction = "cancel_schedule"
	HistoryActionPublish         HistoryAction = "publish"
	HistoryActionApprove         HistoryAction = "approve"
	HistoryActionReject          HistoryAction = "reject"
	HistoryActionRecall          HistoryAction = "recall"
	HistoryActionResubmit        HistoryAction = "resubmit"
	HistoryActionRemind          HistoryAction = "remind"
	HistoryActionAddReference    HistoryAction = "add_reference"
	HistoryActionRemoveReference HistoryAction = "remove_reference"
	HistoryActionAttach          HistoryAction = "attach"
	HistoryActionDetach          HistoryAction = "detach"
)

// DocumentHistory 文档操作记录，只追加
type DocumentHistory struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	DocumentID uint          `gorm:"not null;index" json:"document_id"`
	ActorID    uint          `gorm:"not null" json:"actor_id"` // 0 表示系统（调度任务）
	Action     HistoryAction `gorm:"type:varchar(30);not null" json:"action"`
	Comment    string        `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time     `json:"created_at"`
}

// TableName 指定表名
func (DocumentHistory) TableName() string {
	return "document_histories"
}
