// Package domain defines the persistence models for users, chats, messages,
// and mirror configurations. These types are mapped with GORM and form the
// core data layer of the mirror engine.
package domain

import "time"

// ChatType enumerates the Telegram conversation kinds we observe.
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"
	ChatTypeUnknown    = "unknown"
)

// User is a chat participant observed by the privileged client account.
// Rows are created lazily on the first message seen from an unknown sender
// and classified at that moment from the configured admin/allowed id lists.
// Permission flags change only through administrative operations afterwards;
// users are deactivated, never deleted.
type User struct {
	ID        int64   `gorm:"primaryKey;autoIncrement:false"`
	Username  *string `gorm:"type:varchar(255);uniqueIndex"`
	FirstName *string `gorm:"type:varchar(255)"`
	LastName  *string `gorm:"type:varchar(255)"`
	IsAdmin   bool    `gorm:"not null;default:false"`
	IsAllowed bool    `gorm:"not null;default:false"`
	IsActive  bool    `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Chat is a source or destination conversation. A chat may be both source and
// target at once. Classification (IsSource/IsTarget) is fixed at creation from
// static configuration; profile fields (title, username, description) are
// refreshed on every subsequent sighting.
type Chat struct {
	ID          int64   `gorm:"primaryKey;autoIncrement:false"`
	Title       *string `gorm:"type:varchar(255)"`
	Username    *string `gorm:"type:varchar(255);uniqueIndex"`
	Type        string  `gorm:"type:varchar(50);not null"`
	Description *string `gorm:"type:text"`
	IsSource    bool    `gorm:"not null;default:false"`
	IsTarget    bool    `gorm:"not null;default:false"`
	IsActive    bool    `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Message is one observed chat message. The store uses its own surrogate key;
// TelegramID is the protocol message identifier, unique only within a chat.
//
// Mirrored state: MirrorCount is incremented once per successful dispatch
// pass (not once per target), IsMirrored is true iff MirrorCount >= 1, and
// RenderedImagePath records the artifact of the most recent rendering pass.
type Message struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"not null;index:idx_chat_tg_msg,priority:2"`
	ChatID     int64 `gorm:"not null;index:idx_chat_tg_msg,priority:1"`
	UserID     *int64

	Text              *string `gorm:"type:text"`
	MediaType         *string `gorm:"type:varchar(50)"`
	MediaFileID       *string `gorm:"type:varchar(255)"`
	MediaFileUniqueID *string `gorm:"type:varchar(255)"`

	ReplyToMessageID *int64
	MessageThreadID  *int64

	IsForwarded       bool `gorm:"not null;default:false"`
	ForwardFromChatID *int64
	ForwardFromUserID *int64
	ForwardDate       *time.Time

	IsMirrored        bool    `gorm:"not null;default:false"`
	MirrorCount       int     `gorm:"not null;default:0"`
	RenderedImagePath *string `gorm:"type:varchar(512)"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Chat is the owning conversation; messages are cascade-deleted with it.
	Chat Chat  `gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Mirror is a directed configuration edge from one source chat to one target
// chat. Both chats must already exist before a mirror can be created; there is
// no uniqueness constraint on the pair, so duplicate edges are permitted and
// each fires independently.
type Mirror struct {
	ID            uint  `gorm:"primaryKey"`
	SourceChatID  int64 `gorm:"not null;index"`
	TargetChatID  int64 `gorm:"not null;index"`
	TargetTopicID *int64

	// No column defaults here: a false policy flag with a true default would
	// be dropped from the INSERT and silently flip back on.
	IsActive       bool `gorm:"not null"`
	RenderAsImage  bool `gorm:"not null"`
	IncludeMedia   bool `gorm:"not null"`
	IncludeReplies bool `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	SourceChat Chat `gorm:"foreignKey:SourceChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	TargetChat Chat `gorm:"foreignKey:TargetChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Mirror.
func (Mirror) TableName() string { return "mirrors" }
