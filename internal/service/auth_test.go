package service

import (
	"context"
	"testing"
	"time"

	"github.com/slotswap/slotswap-go/internal/model"
	"github.com/slotswap/slotswap-go/internal/repository"
)

func newTestAuthService() *AuthService {
	// Validation runs before any query, so a nil DB handle is never touched.
	return NewAuthService(repository.NewUserRepository(nil), "test-secret", time.Hour)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestAuthService()

	tests := []struct {
		name    string
		req     model.RegisterRequest
		wantErr error
	}{
		{
			name:    "empty email",
			req:     model.RegisterRequest{Password: "longenough", FirstName: "Ada", LastName: "Lovelace"},
			wantErr: ErrEmailRequired,
		},
		{
			name:    "empty password",
			req:     model.RegisterRequest{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
			wantErr: ErrPasswordRequired,
		},
		{
			name:    "short password",
			req:     model.RegisterRequest{Email: "ada@example.com", Password: "short", FirstName: "Ada", LastName: "Lovelace"},
			wantErr: ErrPasswordTooShort,
		},
		{
			name:    "missing first name",
			req:     model.RegisterRequest{Email: "ada@example.com", Password: "longenough", LastName: "Lovelace"},
			wantErr: ErrNameRequired,
		},
		{
			name:    "missing last name",
			req:     model.RegisterRequest{Email: "ada@example.com", Password: "longenough", FirstName: "Ada"},
			wantErr: ErrNameRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			if err != tt.wantErr {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
