package models

// MaxMessageLength bounds message content at creation time.
const MaxMessageLength = 2000

// Message is a single entry in a conversation. The read flag only ever flips
// false to true; there is no un-read operation.
type Message struct {
	BaseModel

	ConversationID string `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderID       string `gorm:"type:uuid;not null;index" json:"sender_id"`
	Content        string `gorm:"type:varchar(2000);not null" json:"content"`
	Read           bool   `gorm:"not null;default:false;index" json:"read"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
