// Package auth handles registration, login and JWT verification for
// anonymous chat users. Tokens carry only the user's anonymous UUID.
package auth

import (
	"anonchat/backend/internal/models"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken    = errors.New("username is taken")
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrInvalidToken     = errors.New("invalid token")
	ErrUserNotFound     = errors.New("user not found")
)

const issuer = "anonchat-backend"

// Service issues and verifies tokens and owns the users table.
type Service struct {
	DB     *gorm.DB
	secret []byte
	ttl    time.Duration
}

// NewService створює новий сервіс авторизації.
func NewService(db *gorm.DB, secret string, ttl time.Duration) *Service {
	return &Service{DB: db, secret: []byte(secret), ttl: ttl}
}

// SignUp registers a new user and logs them in, returning a JWT.
func (s *Service) SignUp(username, password, displayedName string) (string, error) {
	var existing models.User
	err := s.DB.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return "", ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user := models.User{
		Username:      username,
		PasswordHash:  string(hash),
		DisplayedName: displayedName,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return "", err
	}

	return s.issueToken(user.ID)
}

// LogIn checks the credentials and returns a JWT Bearer token.
func (s *Service) LogIn(username, password string) (string, error) {
	var user models.User
	err := s.DB.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrWrongCredentials
	}
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrWrongCredentials
	}

	return s.issueToken(user.ID)
}

func (s *Service) issueToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(s.ttl).Unix(),
		"iss":     issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify decodes a JWT and returns the user id from its payload.
func (s *Service) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return "", ErrInvalidToken
	}
	// Токен має нести синтаксично коректний UUID.
	userID, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrInvalidToken
	}
	return userID.String(), nil
}

// GetByUsername returns the public profile of a user.
func (s *Service) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns the full profile of a user.
func (s *Service) GetByID(userID string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the user's displayed name and interest tags.
func (s *Service) UpdateProfile(userID, displayedName string, interests []string) error {
	user, err := s.GetByID(userID)
	if err != nil {
		return err
	}
	user.DisplayedName = displayedName
	if interests != nil {
		user.Interests = interests
	}
	return s.DB.Save(user).Error
}
