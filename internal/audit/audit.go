package audit

import (
	"context"

	"github.com/AbhishekPandey12345/CampusHub/pkg/log"
)

// Audit actions.
const (
	ActionCreateDirect  = "conversation.create_direct"
	ActionCreateGroup   = "conversation.create_group"
	ActionRenameGroup   = "conversation.rename"
	ActionDeleteGroup   = "conversation.delete"
	ActionAddMember     = "member.add"
	ActionRemoveMember  = "member.remove"
	ActionAppendMessage = "message.append"
	ActionToggleFollow  = "follow.toggle"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
