package workflow

import (
	"errors"
	"strings"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/utils"
)

var ErrorInvalidCredentials = errors.New("invalid credentials")

// EnsureUser creates or updates a user with the given password. Used by the
// seed tool; there is no self-service signup.
func (e *Engine) EnsureUser(username, password, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var result *models.User
	err = e.repo.UpdateUsers(func(doc *models.UsersDocument) error {
		if existing := doc.FindByUsername(username); existing != nil {
			existing.PasswordHash = string(hash)
			existing.Role = role
			cp := *existing
			result = &cp
			return nil
		}
		user := models.User{
			ID:           e.newID(),
			Username:     username,
			Role:         role,
			PasswordHash: string(hash),
			CreatedAt:    e.now(),
		}
		doc.Users = append(doc.Users, user)
		result = &user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Authenticate verifies the credentials and returns a signed JWT.
func (e *Engine) Authenticate(input *models.LoginInput) (string, *models.User, error) {
	doc, err := e.repo.LoadUsers()
	if err != nil {
		return "", nil, err
	}
	user := doc.FindByUsername(strings.TrimSpace(input.Username))
	if user == nil {
		return "", nil, ErrorInvalidCredentials
	}
	if err := utils.ComparePassword(user.PasswordHash, input.Password); err != nil {
		return "", nil, ErrorInvalidCredentials
	}
	token, err := utils.JwtGenerate(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
