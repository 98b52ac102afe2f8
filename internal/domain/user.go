package domain

// Role values recognised by the capability checks
const (
	RoleAdmin    = "ADMIN"    // Platform administrator
	RoleHR       = "HR"       // Company HR manager
	RoleEmployee = "EMPLOYEE" // Regular employee
)

// User Model
type User struct {
	ID            uint   `gorm:"primaryKey"`        // Primary key
	Username      string `gorm:"unique;not null"`   // Unique username
	Password      string `gorm:"not null" json:"-"` // Hashed password
	Role          string `gorm:"default:EMPLOYEE"`  // Role: ADMIN, HR or EMPLOYEE
	CompanyID     *uint  // Company the account belongs to, if any
	HasPaidBundle bool   `gorm:"not null;default:false"`                         // Entitlement flag, set exactly once
	Wallet        Wallet `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"` // One-to-one relationship with Wallet
}
