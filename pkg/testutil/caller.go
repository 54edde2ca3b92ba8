package testutil

import (
	"context"

	"github.com/patentx-lab/backend/internal/domain/notification/event"
	"github.com/patentx-lab/backend/pkg/errorx"
)

// MockNotificationEngineCaller records every emitted event. Notifications are
// best effort in the domains, so the default Emit silently succeeds.
type MockNotificationEngineCaller struct {
	EmitFunc func(ctx context.Context, ev *event.EventRequest) error

	Emitted []*event.EventRequest
}

func (m *MockNotificationEngineCaller) Emit(ctx context.Context, ev *event.EventRequest) error {
	m.Emitted = append(m.Emitted, ev)

	if m.EmitFunc != nil {
		return m.EmitFunc(ctx, ev)
	}

	return nil
}

func (m *MockNotificationEngineCaller) Close() {}

type MockPaymentCaller struct {
	RefundFunc func(ctx context.Context, paymentIntent string, amount float64) error
}

func (m *MockPaymentCaller) Refund(ctx context.Context, paymentIntent string, amount float64) error {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, paymentIntent, amount)
	}

	return errorx.New(errorx.NotImplemented, "Not implemented")
}
