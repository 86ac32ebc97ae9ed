package pxls

// EventHandler receives decoded stream events, one notification per frame
// in arrival order, never concurrently within a session. Notifications are
// fire-and-forget. Embed NoopEventHandler to implement only the events
// you care about.
type EventHandler interface {
	// the connection is up and board info is cached
	HandleReady(client *Client)
	// the stream ended. cached buffers stay readable until the next connect.
	HandleDisconnect(client *Client)

	HandleBoardUpdate(client *Client, pixels []Pixel)
	HandleUserCount(client *Client, count int)
	HandleAlert(client *Client, sender string, message string)
	HandleNotification(client *Client, notification Notification)
	HandleChatMessage(client *Client, message ChatMessage)
	HandleChatHistory(client *Client, messages []ChatMessage)
	HandleChatUserUpdate(client *Client, who string, updates UserUpdate)
	HandleChatLookup(client *Client, target User, history []ChatMessage, chatbans []ChatBan)
	HandleChatBan(client *Client, permanent bool, reason string, expiry uint64)
	HandleChatBanState(client *Client, permanent bool, reason string, expiry uint64)
	HandleChatPurge(client *Client, target string, initiator string, amount int, reason string, announce bool)
	HandleChatPurgeSpecific(client *Client, target string, initiator string, ids []uint64, reason string, announce bool)
	HandleMessageCooldown(client *Client, diff int, message string)
	HandleFactionUpdate(client *Client, faction UserFaction)
	HandleFactionClear(client *Client, factionId int)
	HandleAcknowledge(client *Client, acknowledgeFor AcknowledgeType, x int, y int)
	HandleOverrides(client *Client, overrides PlacementOverrides)
	HandleCaptchaRequired(client *Client)
	HandleCaptchaStatus(client *Client, success bool)
	HandleCanUndo(client *Client, time uint64)
	HandleCooldown(client *Client, wait float32)
	HandleReceivedReport(client *Client, reportId int, reportType string)
	HandlePixelsAvailable(client *Client, count int, cause string)
	HandleUserInfo(client *Client, userInfo UserInfo)
	HandlePixelCounts(client *Client, pixelCount int, pixelCountAllTime int)
	HandleRename(client *Client, requested bool)
	HandleRenameSuccess(client *Client, newName string)

	// a frame with an unrecognized tag or that failed to parse.
	// carries the verbatim frame text.
	HandleUnknown(client *Client, text string)
}

// NoopEventHandler implements every notification as a no-op.
type NoopEventHandler struct{}

func (self *NoopEventHandler) HandleReady(client *Client) {}

func (self *NoopEventHandler) HandleDisconnect(client *Client) {}

func (self *NoopEventHandler) HandleBoardUpdate(client *Client, pixels []Pixel) {}

func (self *NoopEventHandler) HandleUserCount(client *Client, count int) {}

func (self *NoopEventHandler) HandleAlert(client *Client, sender string, message string) {}

func (self *NoopEventHandler) HandleNotification(client *Client, notification Notification) {}

func (self *NoopEventHandler) HandleChatMessage(client *Client, message ChatMessage) {}

func (self *NoopEventHandler) HandleChatHistory(client *Client, messages []ChatMessage) {}

func (self *NoopEventHandler) HandleChatUserUpdate(client *Client, who string, updates UserUpdate) {}

func (self *NoopEventHandler) HandleChatLookup(client *Client, target User, history []ChatMessage, chatbans []ChatBan) {
}

func (self *NoopEventHandler) HandleChatBan(client *Client, permanent bool, reason string, expiry uint64) {
}

func (self *NoopEventHandler) HandleChatBanState(client *Client, permanent bool, reason string, expiry uint64) {
}

func (self *NoopEventHandler) HandleChatPurge(client *Client, target string, initiator string, amount int, reason string, announce bool) {
}

func (self *NoopEventHandler) HandleChatPurgeSpecific(client *Client, target string, initiator string, ids []uint64, reason string, announce bool) {
}

func (self *NoopEventHandler) HandleMessageCooldown(client *Client, diff int, message string) {}

func (self *NoopEventHandler) HandleFactionUpdate(client *Client, faction UserFaction) {}

func (self *NoopEventHandler) HandleFactionClear(client *Client, factionId int) {}

func (self *NoopEventHandler) HandleAcknowledge(client *Client, acknowledgeFor AcknowledgeType, x int, y int) {
}

func (self *NoopEventHandler) HandleOverrides(client *Client, overrides PlacementOverrides) {}

func (self *NoopEventHandler) HandleCaptchaRequired(client *Client) {}

func (self *NoopEventHandler) HandleCaptchaStatus(client *Client, success bool) {}

func (self *NoopEventHandler) HandleCanUndo(client *Client, time uint64) {}

func (self *NoopEventHandler) HandleCooldown(client *Client, wait float32) {}

func (self *NoopEventHandler) HandleReceivedReport(client *Client, reportId int, reportType string) {
}

func (self *NoopEventHandler) HandlePixelsAvailable(client *Client, count int, cause string) {}

func (self *NoopEventHandler) HandleUserInfo(client *Client, userInfo UserInfo) {}

func (self *NoopEventHandler) HandlePixelCounts(client *Client, pixelCount int, pixelCountAllTime int) {
}

func (self *NoopEventHandler) HandleRename(client *Client, requested bool) {}

func (self *NoopEventHandler) HandleRenameSuccess(client *Client, newName string) {}

func (self *NoopEventHandler) HandleUnknown(client *Client, text string) {}
