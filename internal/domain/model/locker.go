package model

import "time"

// Gender keys the locker inventory pools.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// LockerInventory tracks the per-gender locker pool. used_quantity is only
// mutated through atomic conditional updates tied to an enrollment transition,
// so used <= total holds at all times.
type LockerInventory struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Gender        Gender    `gorm:"size:10;not null;uniqueIndex" json:"gender"`
	TotalQuantity int       `gorm:"not null" json:"total_quantity"`
	UsedQuantity  int       `gorm:"not null;default:0" json:"used_quantity"`
	CreatedAt     time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (LockerInventory) TableName() string {
	return "locker_inventories"
}

// Available returns the number of lockers currently free.
func (l *LockerInventory) Available() int {
	return l.TotalQuantity - l.UsedQuantity
}
