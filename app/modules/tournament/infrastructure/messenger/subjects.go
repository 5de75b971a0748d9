package messenger

// Request subjects served by the chat gateway, relative to Config.SubjectPrefix.
const (
	opSendMessage        = "message.send"
	opEditMessage        = "message.edit"
	opDeleteMessage      = "message.delete"
	opMessageExists      = "message.exists"
	opDirectMessage      = "dm.send"
	opAddReaction        = "reaction.add"
	opRemoveUserReaction = "reaction.remove"
	opUsername           = "user.name"
	opPlayerRole         = "role.player"
	opGrantRole          = "role.grant"
	opRemoveRole         = "role.remove"
	opDeleteRole         = "role.delete"
	opIsOrganiser        = "role.organiser"
)

// Reply codes the gateway uses for failures callers treat specially.
const (
	codeBlockedDMs     = "blocked_dms"
	codeUnknownMessage = "unknown_message"
)

// CorrelationHeader carries the correlation ID of the inbound event.
const CorrelationHeader = "correlation_id"
