package models

import "time"

// User & auth related models
type User struct {
	ID        uint    `gorm:"primaryKey"`
	Email     string  `gorm:"unique;not null;index"`
	Password  string  `gorm:"not null"` // hashé (bcrypt)
	Nom       string  `gorm:"index"`
	Prenom    string  `gorm:"index"`
	AddressID uint    // clé étrangère vers Address
	Address   Address `gorm:"foreignKey:AddressID"`
	RoleID    uint    // clé étrangère vers Role
	Role      Role    `gorm:"foreignKey:RoleID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Role struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"unique;not null"` // admin, user
	Description string // optionnel
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
