package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"storefront/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"email unique", &pq.Error{Code: "23505", Constraint: constraintClientEmail}, domain.ErrEmailExists},
		{"phone unique", &pq.Error{Code: "23505", Constraint: constraintClientPhone}, domain.ErrPhoneExists},
		{"product in use", &pq.Error{Code: "23503", Constraint: constraintOrderProduct}, domain.ErrProductInUse},
		{"numeric overflow", &pq.Error{Code: "22003", Message: "numeric field overflow"}, domain.ErrValueOutOfRange},
		{"stock check", &pq.Error{Code: "23514", Constraint: constraintProductStock}, domain.ErrInsufficientStock},
		{"wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: constraintClientEmail}), domain.ErrEmailExists},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mapError(context.Background(), tc.err)
			if !errors.Is(got, tc.want) {
				t.Errorf("mapError = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	if mapError(context.Background(), nil) != nil {
		t.Error("nil should stay nil")
	}
	other := &pq.Error{Code: "23505", Constraint: "some_other_key"}
	if got := mapError(context.Background(), other); got != error(other) {
		t.Errorf("unknown constraint should pass through, got %v", got)
	}
	if domain.KindOf(mapError(context.Background(), errors.New("boom"))) != domain.KindInternal {
		t.Error("plain errors stay internal")
	}
}

func TestMapError_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	err := mapError(ctx, &pq.Error{Code: "57014", Message: "canceling statement due to user request"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline to be detectable, got %v", err)
	}
	if domain.KindOf(err) != domain.KindTimeout {
		t.Errorf("expected timeout kind, got %v", domain.KindOf(err))
	}
}

func TestNullString(t *testing.T) {
	if nullString(nil).Valid {
		t.Error("nil pointer should be NULL")
	}
	s := "hello"
	ns := nullString(&s)
	if !ns.Valid || ns.String != "hello" {
		t.Errorf("unexpected %+v", ns)
	}
	if p := stringPtr(ns); p == nil || *p != "hello" {
		t.Error("round trip failed")
	}
}
