package session

import (
	"net/url"
	"strings"
	"time"

	"pulse/internal/models"

	"github.com/google/uuid"
)

// DefaultBio is given to every freshly created user.
const DefaultBio = "New to Pulse ✨"

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// Credentials is the login or signup form. Password is checked for presence
// only and is never stored.
type Credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Signup   bool   `json:"-"`
}

// Validate checks the required form fields.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return models.NewValidationError("email is required")
	}
	if c.Password == "" {
		return models.NewValidationError("password is required")
	}
	if c.Signup && strings.TrimSpace(c.Name) == "" {
		return models.NewValidationError("name is required")
	}
	return nil
}

// NewUser builds the user record handed to Store.Login.
func NewUser(c Credentials) (models.User, error) {
	return newUser(c, uuid.NewString(), time.Now().UTC().Truncate(time.Millisecond))
}

func newUser(c Credentials, id string, now time.Time) (models.User, error) {
	if err := c.Validate(); err != nil {
		return models.User{}, err
	}
	email := strings.TrimSpace(c.Email)
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = emailLocalPart(email)
	}
	return models.User{
		ID:       id,
		Name:     name,
		Email:    email,
		Avatar:   AvatarURL(email),
		Bio:      DefaultBio,
		JoinedAt: now,
	}, nil
}

// AvatarURL returns the generated avatar for seed.
func AvatarURL(seed string) string {
	return avatarBaseURL + url.QueryEscape(seed)
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
