// Package users implements the email/phone account API: registration, login,
// profile maintenance and email verification.
package users

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email/phone number or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Account status values.
const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusSuspended = "suspended"
)

type User struct {
	ID           string      `bson:"_id" json:"_id"`
	Email        string      `bson:"email" json:"email"`
	PhoneNumber  string      `bson:"phone_number" json:"phoneNumber"`
	PasswordHash string      `bson:"password_hash,omitempty" json:"-"`
	Profile      Profile     `bson:"profile" json:"profile"`
	Crops        []Crop      `bson:"crops" json:"crops"`
	Preferences  Preferences `bson:"preferences" json:"preferences"`
	Metadata     Metadata    `bson:"metadata" json:"metadata"`
	CreatedAt    time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `bson:"updated_at" json:"updatedAt"`
}

type Profile struct {
	FirstName    string   `bson:"first_name" json:"firstName" validate:"required"`
	LastName     string   `bson:"last_name" json:"lastName" validate:"required"`
	FarmName     string   `bson:"farm_name,omitempty" json:"farmName,omitempty"`
	Location     Location `bson:"location" json:"location"`
	Language     string   `bson:"language" json:"language" validate:"required,oneof=en sw ki luo kam"`
	ProfileImage string   `bson:"profile_image,omitempty" json:"profileImage,omitempty"`
}

// Location is a GeoJSON point plus the administrative area.
type Location struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"len=2"` // [longitude, latitude]
	County      string    `bson:"county" json:"county" validate:"required"`
	SubCounty   string    `bson:"sub_county" json:"subCounty" validate:"required"`
	Ward        string    `bson:"ward" json:"ward" validate:"required"`
}

type Crop struct {
	CropName         string   `bson:"crop_name" json:"cropName" validate:"required"`
	Varieties        []string `bson:"varieties" json:"varieties"`
	FarmSize         float64  `bson:"farm_size" json:"farmSize" validate:"gt=0"`
	AverageYield     float64  `bson:"average_yield" json:"averageYield" validate:"gt=0"`
	HarvestFrequency string   `bson:"harvest_frequency" json:"harvestFrequency" validate:"required,oneof=weekly monthly seasonal annually"`
}

type Preferences struct {
	NotificationsEnabled bool     `bson:"notifications_enabled" json:"notificationsEnabled"`
	SMSAlerts            bool     `bson:"sms_alerts" json:"smsAlerts"`
	EmailAlerts          bool     `bson:"email_alerts" json:"emailAlerts"`
	PreferredMarkets     []string `bson:"preferred_markets" json:"preferredMarkets"`
}

type Metadata struct {
	RegistrationDate       time.Time          `bson:"registration_date" json:"registrationDate"`
	LastLogin              *time.Time         `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	AccountStatus          string             `bson:"account_status" json:"accountStatus"`
	VerificationStatus     VerificationStatus `bson:"verification_status" json:"verificationStatus"`
	EmailVerificationToken string             `bson:"email_verification_token,omitempty" json:"-"`
}

type VerificationStatus struct {
	Phone bool `bson:"phone" json:"phone"`
	Email bool `bson:"email" json:"email"`
}

type RegisterRequest struct {
	Email       string       `json:"email" validate:"required,email"`
	PhoneNumber string       `json:"phoneNumber" validate:"required,min=10,max=15"`
	Password    string       `json:"password" validate:"required,min=8"`
	Profile     Profile      `json:"profile"`
	Crops       []Crop       `json:"crops" validate:"omitempty,dive"`
	Preferences *Preferences `json:"preferences"`
}

type LoginRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
	Password     string `json:"password" validate:"required,min=8"`
}

// ProfilePatch holds optional profile fields. Set fields are written
// individually so the rest of the profile is kept.
type ProfilePatch struct {
	FirstName    *string        `json:"firstName" validate:"omitempty,min=1"`
	LastName     *string        `json:"lastName" validate:"omitempty,min=1"`
	FarmName     *string        `json:"farmName"`
	Location     *LocationPatch `json:"location"`
	Language     *string        `json:"language" validate:"omitempty,oneof=en sw ki luo kam"`
	ProfileImage *string        `json:"profileImage"`
}

type LocationPatch struct {
	Coordinates []float64 `json:"coordinates" validate:"omitempty,len=2"`
	County      *string   `json:"county" validate:"omitempty,min=1"`
	SubCounty   *string   `json:"subCounty" validate:"omitempty,min=1"`
	Ward        *string   `json:"ward" validate:"omitempty,min=1"`
}

type UpdateRequest struct {
	Profile     *ProfilePatch `json:"profile"`
	Crops       []Crop        `json:"crops" validate:"omitempty,dive"`
	Preferences *Preferences  `json:"preferences"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
