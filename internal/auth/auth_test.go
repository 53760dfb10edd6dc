package auth

import (
	"errors"
	"testing"
	"time"

	"ContestScoreAPI/internal/models/domain"

	"github.com/google/uuid"
)

func TestIssuerRoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	id := Identity{UserID: uuid.New(), Name: "Rosa", Email: "rosa@example.org"}

	token, err := iss.Generate(id)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != id {
		t.Errorf("Parse = %+v, want %+v", got, id)
	}
}

func TestIssuerRejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	token, err := iss.Generate(Identity{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	other := NewIssuer("other", time.Hour)
	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Generate(Identity{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	tests := []struct {
		name  string
		iss   *Issuer
		token string
	}{
		{"wrong secret", other, token},
		{"expired", iss, old},
		{"garbage", iss, "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.iss.Parse(tt.token); !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("Parse = %v, want unauthorized", err)
			}
		})
	}
}
