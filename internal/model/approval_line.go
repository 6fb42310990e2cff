package model

import "time"

// ApprovalLineStatus 审批线状态
type ApprovalLineStatus string

const (
	ApprovalLineStatusPending  ApprovalLineStatus = "PENDING"  // 待审批
	ApprovalLineStatusApproved ApprovalLineStatus = "APPROVED" // 已批准
	ApprovalLineStatusRejected ApprovalLineStatus = "REJECTED" // 已驳回
)

// ApprovalLine 审批线，一个审批人在文档审批顺序中的位置和决定
type ApprovalLine struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	DocumentID uint               `gorm:"not null;uniqueIndex:uk_document_sequence" json:"document_id"`
	ApproverID uint               `gorm:"not null;index" json:"approver_id"`
	Sequence   int                `gorm:"not null;uniqueIndex:uk_document_sequence" json:"sequence"`
	Status     ApprovalLineStatus `gorm:"type:varchar(20);default:PENDING;not null" json:"status"`
	DecidedAt  *time.Time         `json:"decided_at,omitempty"`
	Comment    string             `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// TableName 指定表名
func (ApprovalLine) TableName() string {
	return "approval_lines"
}

// BuildApprovalLines 按顺序生成审批线，序号从1开始连续
func BuildApprovalLines(approverIDs []uint) []ApprovalLine {
	lines := make([]ApprovalLine, 0, len(approverIDs))
	for i, approverID := range approverIDs {
		lines = append(lines, ApprovalLine{
			ApproverID: approverID,
			Sequence:   i + 1,
			Status:     ApprovalLineStatusPending,
		})
	}
	return lines
}
