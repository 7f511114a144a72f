package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusBanned   = "banned"
	UserStatusDeleted  = "deleted"
)

const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleVIP       = "vip"
)

var userStatuses = map[string]struct{}{
	UserStatusActive:   {},
	UserStatusInactive: {},
	UserStatusBanned:   {},
	UserStatusDeleted:  {},
}

var userRoles = map[string]struct{}{
	RoleUser:      {},
	RoleAdmin:     {},
	RoleModerator: {},
	RoleVIP:       {},
}

func IsValidUserStatus(status string) bool {
	_, ok := userStatuses[status]
	return ok
}

func IsValidRole(role string) bool {
	_, ok := userRoles[role]
	return ok
}

type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username            string             `bson:"username" json:"username"`
	Email               string             `bson:"email" json:"email"`
	PasswordHash        string             `bson:"password,omitempty" json:"-"`
	FirstName           string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName            string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Gender              string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Age                 *int               `bson:"age,omitempty" json:"age,omitempty"`
	HeightCM            *float64           `bson:"height_cm,omitempty" json:"height_cm,omitempty"`
	WeightKG            *float64           `bson:"weight_kg,omitempty" json:"weight_kg,omitempty"`
	Role                string             `bson:"role" json:"role"`
	Status              string             `bson:"status" json:"status"`
	EmailVerified       bool               `bson:"email_verified" json:"email_verified"`
	ResetTokenHash      string             `bson:"reset_token,omitempty" json:"-"`
	ResetTokenExpiry    *time.Time         `bson:"reset_token_expiry,omitempty" json:"-"`
	LastLogin           *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	FailedLoginAttempts int                `bson:"failed_login_attempts" json:"-"`
	LastFailedLogin     *time.Time         `bson:"last_failed_login,omitempty" json:"-"`
	IsDeleted           bool               `bson:"is_deleted" json:"-"`
	CreatedAt           time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at" json:"updated_at"`
}

// UserPatch carries the profile fields a user may change about themselves.
// Nil fields are left untouched.
type UserPatch struct {
	Username  *string  `json:"username"`
	Email     *string  `json:"email"`
	FirstName *string  `json:"first_name"`
	LastName  *string  `json:"last_name"`
	Gender    *string  `json:"gender"`
	Age       *int     `json:"age"`
	HeightCM  *float64 `json:"height_cm"`
	WeightKG  *float64 `json:"weight_kg"`
}

func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.FirstName == nil && p.LastName == nil &&
		p.Gender == nil && p.Age == nil && p.HeightCM == nil && p.WeightKG == nil
}

// Fields returns the bson field map for the non-nil members of the patch.
func (p UserPatch) Fields() map[string]any {
	fields := map[string]any{}
	if p.Username != nil {
		fields["username"] = *p.Username
	}
	if p.Email != nil {
		fields["email"] = *p.Email
	}
	if p.FirstName != nil {
		fields["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		fields["last_name"] = *p.LastName
	}
	if p.Gender != nil {
		fields["gender"] = *p.Gender
	}
	if p.Age != nil {
		fields["age"] = *p.Age
	}
	if p.HeightCM != nil {
		fields["height_cm"] = *p.HeightCM
	}
	if p.WeightKG != nil {
		fields["weight_kg"] = *p.WeightKG
	}
	return fields
}
