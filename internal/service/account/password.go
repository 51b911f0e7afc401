package account

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/domain"
)

// TokenPasswordInput completes a setup or reset link. Name is only sent
// for the setup flow.
type TokenPasswordInput struct {
	Token    string `json:"token"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (in TokenPasswordInput) validate() error {
	var verr domain.ValidationError
	if strings.TrimSpace(in.Token) == "" {
		verr.Add("token", "required")
	}
	if len(in.Password) < minPasswordLen {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	return verr.Err()
}

func validEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		var verr domain.ValidationError
		verr.Add("email", "a valid email is required")
		return "", verr.Err()
	}
	return email, nil
}

// RegisterEmail asks the backend to mail a password setup link.
func (s *Service) RegisterEmail(ctx context.Context, email string) (string, error) {
	email, err := validEmail(email)
	if err != nil {
		return "", err
	}
	resp, err := s.backend.RegisterEmail(ctx, email)
	if err != nil {
		return "", err
	}
	s.logger.Info("account: setup email requested", zap.String("email", email))
	return resp.Message, nil
}

// SetupPassword sets the first password of an emailed registration. The
// visitor still logs in afterwards.
func (s *Service) SetupPassword(ctx context.Context, in TokenPasswordInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}
	resp, err := s.backend.SetupPassword(ctx, backend.SetupPasswordRequest{
		Token:    strings.TrimSpace(in.Token),
		Password: in.Password,
		Name:     strings.TrimSpace(in.Name),
	})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email, err := validEmail(email)
	if err != nil {
		return "", err
	}
	resp, err := s.backend.ForgotPassword(ctx, email)
	if err != nil {
		return "", err
	}
	s.logger.Info("account: password reset requested", zap.String("email", email))
	return resp.Message, nil
}

func (s *Service) ResetPassword(ctx context.Context, in TokenPasswordInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}
	resp, err := s.backend.ResetPassword(ctx, backend.ResetPasswordRequest{
		Token:    strings.TrimSpace(in.Token),
		Password: in.Password,
	})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}
