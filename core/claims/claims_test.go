package claims

import (
	"context"
	"errors"
	"testing"
)

func TestCanRead(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		owner  string
		want   bool
	}{
		{name: "owner", claims: Claims{UserID: "u1", Role: RoleUser}, owner: "u1", want: true},
		{name: "other user", claims: Claims{UserID: "u2", Role: RoleUser}, owner: "u1", want: false},
		{name: "admin", claims: Claims{UserID: "a1", Role: RoleAdmin}, owner: "u1", want: true},
		{name: "empty ids", claims: Claims{Role: RoleUser}, owner: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := Set(context.Background(), tt.claims)
			if got := CanRead(ctx, tt.owner); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	if _, err := Get(context.Background()); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	if CanRead(context.Background(), "u1") {
		t.Fatal("anonymous caller must not read")
	}
}
