package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"proctored-quiz-service/internal/auth"
	"proctored-quiz-service/internal/domain"
	"proctored-quiz-service/internal/notify"
)

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Username string
	Password string
	Email    string
	OTP      string
	Role     domain.Role
}

// AccountOptions tune the account service.
type AccountOptions struct {
	MaxPasswordChanges int
	RequireEmailOTP    bool
	OTPTTL             time.Duration
	// HashCost is the bcrypt cost; 0 uses bcrypt.DefaultCost.
	HashCost     int
	OTPGenerator func() (string, error)
	Clock        func() time.Time
	Logger       logrus.FieldLogger
}

// AccountService handles registration, login, password changes and email one-time codes.
type AccountService struct {
	users    UserRepository
	otps     OTPStore
	notifier Notifier
	opts     AccountOptions
}

func NewAccountService(users UserRepository, otps OTPStore, notifier Notifier, opts AccountOptions) *AccountService {
	if opts.MaxPasswordChanges <= 0 || opts.MaxPasswordChanges > domain.MaxPasswordChanges {
		opts.MaxPasswordChanges = domain.MaxPasswordChanges
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	if opts.OTPGenerator == nil {
		opts.OTPGenerator = randomCode
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &AccountService{users: users, otps: otps, notifier: notifier, opts: opts}
}

// Register creates an account. Existing usernames are never overwritten.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Password == "" {
		return domain.User{}, domain.ErrInvalidCredential
	}
	if req.Role == "" {
		req.Role = domain.RoleStudent
	}
	if _, err := domain.ParseRole(string(req.Role)); err != nil {
		return domain.User{}, err
	}

	if _, err := s.users.Lookup(ctx, req.Username); err == nil {
		return domain.User{}, domain.ErrDuplicateUsername
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	if s.opts.RequireEmailOTP {
		if req.Email == "" {
			return domain.User{}, domain.ErrInvalidOTP
		}
		if err := s.VerifyOTP(ctx, req.Email, req.OTP); err != nil {
			return domain.User{}, err
		}
	}

	hash, err := auth.HashPassword(req.Password, s.opts.HashCost)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		Email:        req.Email,
		CreatedAt:    s.opts.Clock(),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return domain.User{}, err
	}

	s.opts.Logger.WithFields(logrus.Fields{"username": user.Username, "role": user.Role}).Info("user registered")
	s.notify(user.Email, "Registration Successful", fmt.Sprintf("Welcome, %s! You are registered.", user.Username))
	return user, nil
}

// Authenticate verifies a username/password pair.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.users.Lookup(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrInvalidCredential
	}
	if err != nil {
		return domain.User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return domain.User{}, domain.ErrInvalidCredential
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the old one, at most MaxPasswordChanges times per user.
func (s *AccountService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	user, err := s.Authenticate(ctx, username, oldPassword)
	if err != nil {
		return err
	}
	if newPassword == "" {
		return domain.ErrInvalidCredential
	}
	if user.PasswordChanges >= s.opts.MaxPasswordChanges {
		return domain.ErrChangeLimitExceeded
	}
	hash, err := auth.HashPassword(newPassword, s.opts.HashCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, username, hash, s.opts.MaxPasswordChanges); err != nil {
		return err
	}

	s.opts.Logger.WithField("username", username).Info("password changed")
	s.notify(user.Email, "Password Changed", fmt.Sprintf("Hi %s, your password was changed.", username))
	return nil
}

// RequestOTP generates a one-time code for email and sends it.
func (s *AccountService) RequestOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.ErrInvalidOTP
	}
	code, err := s.opts.OTPGenerator()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	hash, err := auth.HashPassword(code, s.opts.HashCost)
	if err != nil {
		return err
	}
	if err := s.otps.Put(ctx, email, hash, s.opts.OTPTTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	s.notify(email, "Your verification code",
		fmt.Sprintf("Your one-time code is %s. It expires in %s.", code, s.opts.OTPTTL))
	return nil
}

// VerifyOTP consumes the stored code for email. A code can be checked once.
func (s *AccountService) VerifyOTP(ctx context.Context, email, code string) error {
	hash, err := s.otps.Take(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if code == "" || !auth.CheckPassword(hash, code) {
		return domain.ErrInvalidOTP
	}
	return nil
}

func (s *AccountService) notify(to, subject, body string) {
	if s.notifier == nil || to == "" {
		return
	}
	s.notifier.Notify(notify.Message{To: to, Subject: subject, Body: body})
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
