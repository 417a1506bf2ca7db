package user

type ContactPreference string

const (
	ContactEmail ContactPreference = "email"
	ContactPhone ContactPreference = "phone"
	ContactSMS   ContactPreference = "sms"
)

type User struct {
	ID               int64             `json:"id"`
	Username         string            `json:"username"`
	Email            string            `json:"email"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	PhoneNumber      string            `json:"phone_number,omitempty"`
	DateOfBirth      *string           `json:"date_of_birth,omitempty"`
	ProfilePicture   string            `json:"profile_picture,omitempty"`
	PreferredContact ContactPreference `json:"preferred_contact,omitempty"`
	LoyaltyPoints    int               `json:"loyalty_points"`
	IsActive         bool              `json:"is_active"`
	IsStaff          bool              `json:"is_staff"`
	IsSuperuser      bool              `json:"is_superuser"`
	DateJoined       string            `json:"date_joined,omitempty"`
	CreatedAt        string            `json:"created_at,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.IsStaff || u.IsSuperuser
}

func (u User) DisplayName() string {
	if u.FirstName != "" || u.LastName != "" {
		if u.LastName == "" {
			return u.FirstName
		}
		if u.FirstName == "" {
			return u.LastName
		}
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}

// ProfileUpdate carries only the fields the profile endpoint accepts; nil fields are omitted.
type ProfileUpdate struct {
	FirstName        *string            `json:"first_name,omitempty"`
	LastName         *string            `json:"last_name,omitempty"`
	Email            *string            `json:"email,omitempty" validate:"omitempty,email"`
	PhoneNumber      *string            `json:"phone_number,omitempty"`
	DateOfBirth      *string            `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PreferredContact *ContactPreference `json:"preferred_contact,omitempty" validate:"omitempty,oneof=email phone sms"`
}
