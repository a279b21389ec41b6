package models

import "gorm.io/gorm"

// Connection statuses. A request mutates in place on accept/reject; no new row is created.
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionRejected = "rejected"
)

// Connection is a directed request between two users. The PairKey column carries a
// uniqueness constraint over the unordered pair, so at most one relationship row can
// exist between any two users regardless of who initiated it.
type Connection struct {
	BaseModel

	RequesterID string `gorm:"type:uuid;not null;index" json:"requester_id"`
	RecipientID string `gorm:"type:uuid;not null;index" json:"recipient_id"`
	PairKey     string `gorm:"uniqueIndex;not null" json:"-"`

	Status  string `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Message string `gorm:"type:varchar(500)" json:"message,omitempty"`

	Requester *User `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Recipient *User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

// BeforeSave keeps the normalized pair key in sync with the participants.
func (c *Connection) BeforeSave(tx *gorm.DB) error {
	if c.RequesterID != "" && c.RecipientID != "" {
		c.PairKey = PairKey(c.RequesterID, c.RecipientID)
	}
	return nil
}

// Involves reports whether the supplied user is either side of the connection.
func (c *Connection) Involves(userID string) bool {
	return c.RequesterID == userID || c.RecipientID == userID
}

// OtherUser returns the participant that is not the supplied user.
func (c *Connection) OtherUser(userID string) string {
	if c.RequesterID == userID {
		return c.RecipientID
	}
	return c.RequesterID
}

// PairKey produces the canonical unordered-pair key for two user IDs.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
