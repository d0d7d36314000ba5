package handlers_test

import (
	"context"

	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/provisioning"
	"github.com/janhq/support-relay/internal/domain/relay"
)

// MockRelayService is a mock implementation of relay.Service for testing.
type MockRelayService struct {
	SendAppMessageFunc    func(ctx context.Context, params relay.SendParams) (*chat.Message, error)
	HandleTicketEventFunc func(ctx context.Context, event relay.TicketEvent) (*relay.Result, error)
	HandleInboxEventFunc  func(ctx context.Context, event relay.InboxEvent) (*relay.Result, error)
}

func (m *MockRelayService) SendAppMessage(ctx context.Context, params relay.SendParams) (*chat.Message, error) {
	if m.SendAppMessageFunc != nil {
		return m.SendAppMessageFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockRelayService) HandleTicketEvent(ctx context.Context, event relay.TicketEvent) (*relay.Result, error) {
	if m.HandleTicketEventFunc != nil {
		return m.HandleTicketEventFunc(ctx, event)
	}
	return &relay.Result{State: relay.StateIgnored}, nil
}

func (m *MockRelayService) HandleInboxEvent(ctx context.Context, event relay.InboxEvent) (*relay.Result, error) {
	if m.HandleInboxEventFunc != nil {
		return m.HandleInboxEventFunc(ctx, event)
	}
	return &relay.Result{State: relay.StateIgnored}, nil
}

// MockProvisioningService is a mock implementation of provisioning.Service for testing.
type MockProvisioningService struct {
	ProvisionUserFunc              func(ctx context.Context, params provisioning.ProvisionUserParams) (*provisioning.Result, error)
	GetUserFunc                    func(ctx context.Context, id uint) (*chat.User, error)
	ListConversationMessagesFunc   func(ctx context.Context, conversationID string) ([]provisioning.ConversationMessage, error)
	AddParticipantsFunc            func(ctx context.Context, conversationID string, userIDs []uint) (*provisioning.AddParticipantsResult, error)
	BootstrapGroupConversationFunc func(ctx context.Context, params provisioning.BootstrapGroupParams) (*provisioning.Result, error)
}

func (m *MockProvisioningService) ProvisionUser(ctx context.Context, params provisioning.ProvisionUserParams) (*provisioning.Result, error) {
	if m.ProvisionUserFunc != nil {
		return m.ProvisionUserFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockProvisioningService) GetUser(ctx context.Context, id uint) (*chat.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockProvisioningService) ListConversationMessages(ctx context.Context, conversationID string) ([]provisioning.ConversationMessage, error) {
	if m.ListConversationMessagesFunc != nil {
		return m.ListConversationMessagesFunc(ctx, conversationID)
	}
	return []provisioning.ConversationMessage{}, nil
}

func (m *MockProvisioningService) AddParticipants(ctx context.Context, conversationID string, userIDs []uint) (*provisioning.AddParticipantsResult, error) {
	if m.AddParticipantsFunc != nil {
		return m.AddParticipantsFunc(ctx, conversationID, userIDs)
	}
	return nil, nil
}

func (m *MockProvisioningService) BootstrapGroupConversation(ctx context.Context, params provisioning.BootstrapGroupParams) (*provisioning.Result, error) {
	if m.BootstrapGroupConversationFunc != nil {
		return m.BootstrapGroupConversationFunc(ctx, params)
	}
	return nil, nil
}
