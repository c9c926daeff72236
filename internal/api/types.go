package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// --- User types ---

// User is a Venmo user as returned by /me, /users/{id} and the friends list.
// Balance is only known for the authenticated user; other users carry an
// invalid (unknown) balance.
type User struct {
	ID                string              `json:"id"`
	Username          string              `json:"username,omitempty"`
	FirstName         string              `json:"first_name,omitempty"`
	LastName          string              `json:"last_name,omitempty"`
	DisplayName       string              `json:"display_name,omitempty"`
	About             string              `json:"about,omitempty"`
	DateJoined        string              `json:"date_joined,omitempty"`
	ProfilePictureURL string              `json:"profile_picture_url,omitempty"`
	Phone             string              `json:"phone,omitempty"`
	Email             string              `json:"email,omitempty"`
	Balance           decimal.NullDecimal `json:"balance"`
}

// meData is the data object of GET /me.
type meData struct {
	User    User                `json:"user"`
	Balance decimal.NullDecimal `json:"balance"`
}

// --- Transaction types ---

// Audience controls who can see a payment.
type Audience string

const (
	AudiencePublic  Audience = "public"
	AudienceFriends Audience = "friends"
	AudiencePrivate Audience = "private"
)

// Valid reports whether a is one of the audiences accepted by the API.
func (a Audience) Valid() bool {
	switch a {
	case AudiencePublic, AudienceFriends, AudiencePrivate:
		return true
	}
	return false
}

// RecipientType selects which form field identifies a payment recipient.
type RecipientType string

const (
	RecipientUserID RecipientType = "user_id"
	RecipientPhone  RecipientType = "phone"
	RecipientEmail  RecipientType = "email"
)

// Valid reports whether t is a supported recipient type.
func (t RecipientType) Valid() bool {
	switch t {
	case RecipientUserID, RecipientPhone, RecipientEmail:
		return true
	}
	return false
}

// Target is the counterparty of a transaction. Exactly one of Phone, Email or
// User is set, according to Type.
type Target struct {
	Type  string `json:"type"` // user, phone, email
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	User  *User  `json:"user,omitempty"`
}

// Name returns a human label for the target.
func (t Target) Name() string {
	switch t.Type {
	case "phone":
		return t.Phone
	case "email":
		return t.Email
	case "user":
		if t.User != nil {
			return t.User.DisplayName
		}
	}
	return "someone"
}

// Transaction is a single payment or charge.
type Transaction struct {
	ID            string              `json:"id"`
	Status        string              `json:"status,omitempty"`
	Note          string              `json:"note,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Action        string              `json:"action,omitempty"` // pay or charge
	DateCreated   string              `json:"date_created,omitempty"`
	DateCompleted string              `json:"date_completed,omitempty"`
	Audience      Audience            `json:"audience,omitempty"`
	Target        Target              `json:"target"`
	Actor         User                `json:"actor"`
	Fee           decimal.NullDecimal `json:"fee"`
	Refund        decimal.NullDecimal `json:"refund"`
	Medium        string              `json:"medium,omitempty"`
}

// Direction describes a transaction relative to the user selfID.
type Direction string

const (
	DirectionUserPay     Direction = "userpay"
	DirectionUserCharge  Direction = "usercharge"
	DirectionOtherPay    Direction = "otherpay"
	DirectionOtherCharge Direction = "othercharge"
)

// Direction classifies the transaction from selfID's point of view.
func (t Transaction) Direction(selfID string) Direction {
	initiated := t.Actor.ID == selfID
	pay := t.Action == "pay"
	switch {
	case initiated && pay:
		return DirectionUserPay
	case initiated:
		return DirectionUserCharge
	case pay:
		return DirectionOtherPay
	default:
		return DirectionOtherCharge
	}
}

// SignedAmount returns the amount as seen by selfID: negative when money
// leaves selfID's balance.
func (t Transaction) SignedAmount(selfID string) decimal.Decimal {
	switch t.Direction(selfID) {
	case DirectionUserPay, DirectionOtherCharge:
		return t.Amount.Neg()
	default:
		return t.Amount
	}
}

// PaymentRequest is the input of POST /payments. A negative Amount requests
// a charge instead of a payment.
type PaymentRequest struct {
	RecipientType RecipientType   `json:"recipient_type"`
	Recipient     string          `json:"recipient"`
	Note          string          `json:"note"`
	Amount        decimal.Decimal `json:"amount"`
	Audience      Audience        `json:"audience,omitempty"` // defaults to public
}

// PaymentResult is the data object of POST /payments.
type PaymentResult struct {
	Balance decimal.NullDecimal `json:"balance"`
	Payment Transaction         `json:"payment"`
}

// ListPaymentsParams are query parameters for GET /payments.
type ListPaymentsParams struct {
	Limit  int       // total items to return; <= 0 returns everything
	After  time.Time // optional lower bound on date_created
	Before time.Time // optional upper bound on date_created
}

// --- Token endpoint ---

// tokenResponse is the body of POST /oauth/access_token. It is not wrapped in
// a data envelope.
type tokenResponse struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	ExpiresIn    int64               `json:"expires_in"`
	TokenType    string              `json:"token_type,omitempty"`
	User         *User               `json:"user,omitempty"`
	Balance      decimal.NullDecimal `json:"balance"`
}
