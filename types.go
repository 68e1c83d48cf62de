package credlock

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/credlock/credlock/internal/audit"
)

// User is the full account record exchanged with a [UserStore]. It carries
// credential material and lockout state and must never cross the API
// boundary; see [PublicUser].
type User struct {
	ID                  string
	Email               string
	Phone               string
	Role                string
	PasswordHash        string
	PasswordHistory     []string
	IsVerified          bool
	FailedLoginAttempts int
	LockUntil           time.Time
	CreatedAt           time.Time
}

// PublicUser is the safe projection of a [User] returned by login and
// profile reads.
type PublicUser struct {
	ID         string `json:"id"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Role       string `json:"role,omitempty"`
	IsVerified bool   `json:"isVerified"`
}

// publicProjection strips credential and lockout state.
func publicProjection(u *User) *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

// CreateUserInput is the input for [UserStore.CreateUser].
type CreateUserInput struct {
	Email        string
	Phone        string
	Role         string
	PasswordHash string
}

// UserStore is the durable account repository callers must implement.
// Implementations signal missing rows with [ErrNoSuchUser] and
// unique-constraint hits with [ErrDuplicateIdentifier].
//
// RecordLoginFailure must apply its read-increment-write as one atomic
// conditional update so concurrent failed logins cannot lose counts.
type UserStore interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByEmailOrPhone matches either channel; empty arguments never match.
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*User, error)
	MarkVerified(ctx context.Context, id string) error
	// UpdateContact sets the stored email/phone and clears the verified flag.
	UpdateContact(ctx context.Context, id, email, phone string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	AppendPasswordHistory(ctx context.Context, id, hash string) error
	// RecentPasswordHashes returns up to n hashes, most recent first.
	RecentPasswordHashes(ctx context.Context, id string, n int) ([]string, error)
	// RecordLoginFailure increments the failure counter and, once it reaches
	// threshold, sets the lock to now+lockFor. Returns the new counter value
	// and the lock deadline (zero when unlocked).
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockFor time.Duration) (int, time.Time, error)
	ResetLoginFailures(ctx context.Context, id string) error
}

// Profile is the extended account profile owned by a user.
type Profile struct {
	UserID         string                `json:"userId"`
	Name           string                `json:"name,omitempty"`
	DateOfBirth    string                `json:"dateOfBirth,omitempty"`
	Headline       string                `json:"headline,omitempty"`
	Location       string                `json:"location,omitempty"`
	Education      []EducationEntry      `json:"education,omitempty"`
	Employment     []EmploymentEntry     `json:"employment,omitempty"`
	Certifications []CertificationEntry  `json:"certifications,omitempty"`
	Verifications  []VerificationRecord  `json:"verifications,omitempty"`
}

type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartYear   int    `json:"startYear,omitempty"`
	EndYear     int    `json:"endYear,omitempty"`
}

type EmploymentEntry struct {
	Company   string `json:"company"`
	Title     string `json:"title,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Current   bool   `json:"current,omitempty"`
}

type CertificationEntry struct {
	Name      string `json:"name"`
	Authority string `json:"authority,omitempty"`
	IssuedAt  string `json:"issuedAt,omitempty"`
}

// VerificationRecord tracks a third-party check attached to a profile.
type VerificationRecord struct {
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	VerifiedAt time.Time `json:"verifiedAt,omitempty"`
}

// ProfileStore persists profiles. Get signals a missing profile with
// [ErrProfileNotFound].
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, profile *Profile) error
}

// Mailer delivers verification and reset messages over email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers one-time passcodes over SMS.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditKind labels one audit event; see the internal audit package for the
// closed set of values.
type AuditKind = internalaudit.Kind

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
