package credlock

import (
	"context"
	"errors"
)

// ProfileView is a profile overlaid with the live contact and verification
// state from the user row, which is authoritative for those fields.
type ProfileView struct {
	Profile
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	IsVerified bool   `json:"isVerified"`
}

// GetProfile loads a user's profile and overlays the account's email,
// phone, and verification flag.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*ProfileView, error) {
	if e.users == nil || e.profiles == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	profile, err := e.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	return &ProfileView{
		Profile:    *profile,
		Email:      user.Email,
		Phone:      user.Phone,
		IsVerified: user.IsVerified,
	}, nil
}

// UpsertProfileRequest is the input for [Engine.UpsertProfile]. Email and
// Phone, when set, update the account's contact channels.
type UpsertProfileRequest struct {
	UserID  string
	Profile Profile
	Email   string
	Phone   string
}

// UpsertProfile creates or replaces a user's profile. Changing the contact
// email or phone first checks the new value is not claimed by another
// account, then clears the verified flag and re-dispatches the
// verification challenge, since the new channel has never been proven.
func (e *Engine) UpsertProfile(ctx context.Context, req UpsertProfileRequest) (*ProfileView, error) {
	if e.users == nil || e.profiles == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	newEmail := user.Email
	newPhone := user.Phone
	contactChanged := false
	if req.Email != "" && req.Email != user.Email {
		newEmail = req.Email
		contactChanged = true
	}
	if req.Phone != "" && req.Phone != user.Phone {
		newPhone = req.Phone
		contactChanged = true
	}

	if contactChanged {
		other, err := e.users.FindByEmailOrPhone(ctx, newEmail, newPhone)
		if err != nil && !errors.Is(err, ErrNoSuchUser) {
			return nil, err
		}
		if err == nil && other.ID != user.ID {
			e.emitAudit(ctx, auditEventProfileUpsert, false, user.ID, "", ErrAccountExists, func() map[string]string {
				return map[string]string{"reason": "contact_conflict"}
			})
			return nil, ErrAccountExists
		}

		if err := e.users.UpdateContact(ctx, user.ID, newEmail, newPhone); err != nil {
			return nil, err
		}
		user.Email = newEmail
		user.Phone = newPhone
		user.IsVerified = false

		e.dispatchVerification(ctx, user)
	}

	profile := req.Profile
	profile.UserID = user.ID
	if err := e.profiles.Upsert(ctx, &profile); err != nil {
		return nil, err
	}

	e.metricInc(MetricProfileUpsert)
	e.emitAudit(ctx, auditEventProfileUpsert, true, user.ID, "", nil, func() map[string]string {
		if contactChanged {
			return map[string]string{"contact_changed": "true"}
		}
		return nil
	})

	return &ProfileView{
		Profile:    profile,
		Email:      user.Email,
		Phone:      user.Phone,
		IsVerified: user.IsVerified,
	}, nil
}
