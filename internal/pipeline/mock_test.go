package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ikasa-digital/leads-cli/pkg/cnpja"
	"github.com/ikasa-digital/leads-cli/pkg/fourc"
	"github.com/ikasa-digital/leads-cli/pkg/gclick"
)

// --- Registry Mock ---

type mockRegistryClient struct {
	mock.Mock
}

func (m *mockRegistryClient) Search(ctx context.Context, q cnpja.Query) ([]cnpja.Office, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cnpja.Office), args.Error(1)
}

func (m *mockRegistryClient) Lookup(ctx context.Context, taxID string) (*cnpja.Office, error) {
	args := m.Called(ctx, taxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cnpja.Office), args.Error(1)
}

func (m *mockRegistryClient) HealthCheck(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// --- CRM Mock ---

type mockCRMClient struct {
	mock.Mock
}

func (m *mockCRMClient) CreateLead(ctx context.Context, payload fourc.LeadPayload) (*fourc.CreateResult, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fourc.CreateResult), args.Error(1)
}

func (m *mockCRMClient) UpdateLead(ctx context.Context, leadID string, fields map[string]any) error {
	args := m.Called(ctx, leadID, fields)
	return args.Error(0)
}

func (m *mockCRMClient) GetLead(ctx context.Context, leadID string) (*fourc.Lead, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fourc.Lead), args.Error(1)
}

func (m *mockCRMClient) HealthCheck(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// --- Notifier Mock ---

type mockNotifierClient struct {
	mock.Mock
}

func (m *mockNotifierClient) SendEmail(ctx context.Context, msg gclick.Message) (*gclick.SendResult, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gclick.SendResult), args.Error(1)
}

func (m *mockNotifierClient) EmailStatus(ctx context.Context, messageID string) (*gclick.DeliveryStatus, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gclick.DeliveryStatus), args.Error(1)
}

func (m *mockNotifierClient) HealthCheck(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
