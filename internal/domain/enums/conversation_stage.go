package enums

type ConversationStage string

const (
	ConversationStageIdle               ConversationStage = "idle"
	ConversationStageAwaitingUID        ConversationStage = "awaiting_uid"
	ConversationStageAwaitingScreenshot ConversationStage = "awaiting_screenshot"
	ConversationStageAwaitingBroadcast  ConversationStage = "awaiting_broadcast"
)
