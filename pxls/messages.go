package pxls

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/golang/glog"
)

// Pixel is one placed-pixel change from the stream.
type Pixel struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Color uint8 `json:"color"`
}

type Notification struct {
	Id      int     `json:"id"`
	Time    uint64  `json:"time"`
	Expiry  *uint64 `json:"expiry"`
	Who     string  `json:"who"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
}

type Purge struct {
	Initiator string `json:"initiator"`
	Reason    string `json:"reason"`
}

type Badge struct {
	DisplayName string  `json:"displayName"`
	Tooltip     string  `json:"tooltip"`
	CssIcon     *string `json:"cssIcon"`
}

type StrippedFaction struct {
	Id    int     `json:"id"`
	Name  string  `json:"name"`
	Tag   *string `json:"tag"`
	Color uint32  `json:"color"`
}

type ChatMessage struct {
	Id                    uint64           `json:"id"`
	Author                string           `json:"author"`
	Date                  uint64           `json:"date"`
	MessageRaw            string           `json:"message_raw"`
	Purge                 *Purge           `json:"purge"`
	Badges                []Badge          `json:"badges"`
	AuthorNameColor       int32            `json:"authorNameColor"`
	AuthorWasShadowBanned *bool            `json:"authorWasShadowBanned"`
	StrippedFaction       *StrippedFaction `json:"strippedFaction"`
}

type UserFaction struct {
	Id          int    `json:"id"`
	Color       uint32 `json:"color"`
	Name        string `json:"name"`
	Tag         string `json:"tag"`
	Owner       string `json:"owner"`
	CanvasCode  string `json:"canvasCode"`
	CreationMs  uint64 `json:"creation_ms"`
	MemberCount int    `json:"memberCount"`
	UserJoined  bool   `json:"userJoined"`
}

// UserUpdate is a sparse set of chat profile changes keyed by property
// name. Only known properties are decoded; HasDisplayedFaction is set
// even when the faction itself is null (an explicit clear).
type UserUpdate struct {
	NameColor           *int
	HasDisplayedFaction bool
	DisplayedFaction    *UserFaction
}

func (self *UserUpdate) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["NameColor"]; ok {
		var nameColor int
		if err := json.Unmarshal(v, &nameColor); err != nil {
			return err
		}
		self.NameColor = &nameColor
	}
	if v, ok := raw["DisplayedFaction"]; ok {
		self.HasDisplayedFaction = true
		if !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			var faction UserFaction
			if err := json.Unmarshal(v, &faction); err != nil {
				return err
			}
			self.DisplayedFaction = &faction
		}
	}
	return nil
}

type User struct {
	Id                int     `json:"id"`
	Stacked           int     `json:"stacked"`
	ChatNameColor     int     `json:"chatNameColor"`
	SignupTime        uint64  `json:"signup_time"`
	Username          string  `json:"username"`
	CooldownExpiry    uint64  `json:"cooldownExpiry"`
	LoginWithIP       bool    `json:"loginWithIP"`
	SignupIP          string  `json:"signupIP"`
	PixelCount        int     `json:"pixelCount"`
	PixelCountAllTime int     `json:"pixelCountAllTime"`
	BanExpiry         *uint64 `json:"banExpiry"`
	IsPermaChatbanned bool    `json:"isPermaChatbanned"`
	ShadowBanned      bool    `json:"shadowBanned"`
	ChatbanExpiry     uint64  `json:"chatbanExpiry"`
	IsRenameRequested bool    `json:"isRenameRequested"`
	DiscordName       string  `json:"discordName"`
	ChatbanReason     string  `json:"chatbanReason"`
	DisplayedFaction  *int    `json:"displayedFaction"`
	FactionBlocked    *bool   `json:"factionBlocked"`
}

type ChatBan struct {
	Id            int    `json:"id"`
	Target        int    `json:"target"`
	Initiator     int    `json:"initiator"`
	When          uint64 `json:"when"`
	Type          string `json:"type"`
	Expiry        uint64 `json:"expiry"`
	Reason        string `json:"reason"`
	Purged        bool   `json:"purged"`
	TargetName    string `json:"target_name"`
	InitiatorName string `json:"initiator_name"`
}

type AcknowledgeType string

const (
	AcknowledgePlace AcknowledgeType = "PLACE"
	AcknowledgeUndo  AcknowledgeType = "UNDO"
)

type PlacementOverrides struct {
	IgnoreCooldown   *bool `json:"ignoreCooldown"`
	CanPlaceAnyColor *bool `json:"canPlaceAnyColor"`
	IgnorePlacemap   *bool `json:"ignorePlacemap"`
}

type Role struct {
	Id          int      `json:"id"`
	Name        string   `json:"name"`
	Guest       bool     `json:"guest"`
	DefaultRole bool     `json:"defaultRole"`
	Inherits    []Role   `json:"inherits"`
	Badges      []Badge  `json:"badges"`
	Permissions []string `json:"permissions"`
}

// UserInfo is the authenticated-user snapshot the service pushes after
// login. The client never logs in, but a consumer proxying frames from
// an authenticated session still receives it.
type UserInfo struct {
	Username           string             `json:"username"`
	Roles              []Role             `json:"roles"`
	PixelCount         int                `json:"pixelCount"`
	PixelCountAllTime  int                `json:"pixelCountAllTime"`
	Banned             bool               `json:"banned"`
	BanExpiry          *uint64            `json:"banExpiry"`
	BanReason          *string            `json:"banReason"`
	Method             string             `json:"method"`
	PlacementOverrides PlacementOverrides `json:"placementOverrides"`
	ChatBanned         bool               `json:"chatBanned"`
	ChatbanReason      *string            `json:"chatbanReason"`
	ChatbanIsPerma     *bool              `json:"chatbanIsPerma"`
	ChatbanExpiry      *uint64            `json:"chatbanExpiry"`
	RenameRequested    bool               `json:"renameRequested"`
	DiscordName        *string            `json:"discordName"`
	ChatNameColor      int                `json:"chatNameColor"`
}

// dispatchMessage decodes one inbound text frame by its type tag and
// routes it to the handler. Exactly one notification per frame, in
// arrival order. An unrecognized tag or a parse failure routes the
// verbatim text to HandleUnknown and never ends the stream.
func (self *Client) dispatchMessage(ctx context.Context, data []byte) {
	text := string(data)

	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		self.log("dispatch unparseable frame")
		self.eventHandler.HandleUnknown(self, text)
		return
	}
	self.log("dispatch %s", tag.Type)

	switch tag.Type {
	case "pixel":
		var m struct {
			Pixels []Pixel `json:"pixels"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		// buffers update before the event is forwarded so any observer
		// sees them already consistent with it
		if err := self.applyPixels(ctx, m.Pixels); err != nil {
			glog.Warningf("[pxls][%s]apply pixels: %s\n", self.instanceId, err)
		}
		self.eventHandler.HandleBoardUpdate(self, m.Pixels)
	case "users":
		var m struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleUserCount(self, m.Count)
	case "alert":
		var m struct {
			Sender  string `json:"sender"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleAlert(self, m.Sender, m.Message)
	case "notification":
		var m struct {
			Notification Notification `json:"notification"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleNotification(self, m.Notification)
	case "chat_message":
		var m struct {
			Message ChatMessage `json:"message"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleChatMessage(self, m.Message)
	case "chat_history":
		var m struct {
			Messages []ChatMessage `json:"messages"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleChatHistory(self, m.Messages)
	case "chat_user_update":
		var m struct {
			Who     string     `json:"who"`
			Updates UserUpdate `json:"updates"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleChatUserUpdate(self, m.Who, m.Updates)
	case "chat_lookup":
		var m struct {
			Target   User          `json:"target"`
			History  []ChatMessage `json:"history"`
			Chatbans []ChatBan     `json:"chatbans"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleChatLookup(self, m.Target, m.History, m.Chatbans)
	case "chat_ban":
		var m struct {
			Permanent bool   `json:"permanent"`
			Reason    string `json:"reason"`
			Expiry    uint64 `json:"expiry"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleChatBan(self, m.Permanent, m.Reason, m.Expiry)
	case "chat_ban_state":
		var m struct {
			Permanent bool   `json:"permanent"`
			Reason    string `json:"reason"`
			Expiry    uint64 `json:"expiry"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleChatBanState(self, m.Permanent, m.Reason, m.Expiry)
	case "chat_purge":
		var m struct {
			Target    string `json:"target"`
			Initiator string `json:"initiator"`
			Amount    int    `json:"amount"`
			Reason    string `json:"reason"`
			Announce  bool   `json:"announce"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleChatPurge(self, m.Target, m.Initiator, m.Amount, m.Reason, m.Announce)
	case "chat_purge_specific":
		var m struct {
			Target    string   `json:"target"`
			Initiator string   `json:"initiator"`
			Ids       []uint64 `json:"IDs"`
			Reason    string   `json:"reason"`
			Announce  bool     `json:"announce"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleChatPurgeSpecific(self, m.Target, m.Initiator, m.Ids, m.Reason, m.Announce)
	case "message_cooldown":
		var m struct {
			Diff    int    `json:"diff"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleMessageCooldown(self, m.Diff, m.Message)
	case "faction_update":
		var m struct {
			Faction UserFaction `json:"faction"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleFactionUpdate(self, m.Faction)
	case "faction_clear":
		var m struct {
			Fid int `json:"fid"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleFactionClear(self, m.Fid)
	case "ACK":
		var m struct {
			AckFor AcknowledgeType `json:"ackFor"`
			X      int             `json:"x"`
			Y      int             `json:"y"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleAcknowledge(self, m.AckFor, m.X, m.Y)
	case "admin_placement_overrides":
		var m struct {
			PlacementOverrides PlacementOverrides `json:"placementOverrides"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleOverrides(self, m.PlacementOverrides)
	case "captcha_required":
		self.eventHandler.HandleCaptchaRequired(self)
	case "captcha_status":
		var m struct {
			Success bool `json:"success"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleCaptchaStatus(self, m.Success)
	case "can_undo":
		var m struct {
			Time uint64 `json:"time"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleCanUndo(self, m.Time)
	case "cooldown":
		var m struct {
			Wait float32 `json:"wait"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleCooldown(self, m.Wait)
	case "received_report":
		var m struct {
			ReportId   int    `json:"report_id"`
			ReportType string `json:"report_type"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleReceivedReport(self, m.ReportId, m.ReportType)
	case "pixels":
		var m struct {
			Count int    `json:"count"`
			Cause string `json:"cause"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandlePixelsAvailable(self, m.Count, m.Cause)
	case "userinfo":
		var m UserInfo
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleUserInfo(self, m)
	case "pixelCounts":
		var m struct {
			PixelCount        int `json:"pixelCount"`
			PixelCountAllTime int `json:"pixelCountAllTime"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandlePixelCounts(self, m.PixelCount, m.PixelCountAllTime)
	case "rename":
		var m struct {
			Requested bool `json:"requested"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleRename(self, m.Requested)
	case "rename_success":
		var m struct {
			NewName string `json:"newName"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			self.eventHandler.HandleUnknown(self, text)
			return
		}
		self.eventHandler.HandleRenameSuccess(self, m.NewName)
	default:
		self.eventHandler.HandleUnknown(self, text)
	}
}
