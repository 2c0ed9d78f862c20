package model

import "time"

// StateEntry backs the SQL implementation of the ephemeral state store.
type StateEntry struct {
	StateKey  string     `gorm:"type:varchar(191);primaryKey" json:"state_key"`
	Value     []byte     `gorm:"not null" json:"-"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (StateEntry) TableName() string { return "state_entries" }
