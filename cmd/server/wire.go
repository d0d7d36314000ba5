//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/support-relay/internal/config"
	"github.com/janhq/support-relay/internal/domain/chat"
	"github.com/janhq/support-relay/internal/domain/provider"
	"github.com/janhq/support-relay/internal/domain/provisioning"
	"github.com/janhq/support-relay/internal/domain/realtime"
	"github.com/janhq/support-relay/internal/domain/reconcile"
	"github.com/janhq/support-relay/internal/domain/relay"
	"github.com/janhq/support-relay/internal/infrastructure/auth"
	"github.com/janhq/support-relay/internal/infrastructure/cache"
	"github.com/janhq/support-relay/internal/infrastructure/supportinbox"
	"github.com/janhq/support-relay/internal/infrastructure/ticketing"
	"github.com/janhq/support-relay/internal/interfaces"
	"github.com/janhq/support-relay/internal/interfaces/socketserver"
	"github.com/janhq/support-relay/internal/worker"
)

// ProviderSet is the wire provider set for the application.
var ProviderSet = wire.NewSet(
	// Infrastructure providers
	ProvideAuthValidator,
	ProvideInboxClient,
	ProvideTicketingClient,
	wire.Bind(new(provider.InboxClient), new(*supportinbox.Client)),
	wire.Bind(new(provider.TicketingClient), new(*ticketing.Client)),
	ProvideEchoCache,
	ProvideWorkerPool,
	wire.Bind(new(socketserver.Submitter), new(*worker.Pool)),

	// Domain providers
	ProvideReconciler,
	ProvideRegistry,
	ProvideRelayRouter,
	ProvideProvisioningService,
	wire.Bind(new(socketserver.Membership), new(chat.GroupRepository)),

	// Interface providers
	interfaces.InterfacesProvider,

	// Application
	NewApplication,
)

// ProvideAuthValidator provides an auth validator.
func ProvideAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

// ProvideEchoCache provides the relay loop guard.
func ProvideEchoCache(cfg *config.Config) (*cache.EchoCache, error) {
	return cache.NewEchoCache(cfg.EchoCacheSize)
}

// ProvideReconciler provides the identity reconciler.
func ProvideReconciler(inbox provider.InboxClient, tickets provider.TicketingClient, stores *Stores, locker reconcile.Locker, cfg *config.Config, log zerolog.Logger) *reconcile.Service {
	return reconcile.NewService(inbox, tickets, stores.Users, locker, reconcile.Config{
		RequesterEmailDomain: cfg.RequesterEmailDomain,
		Greeting:             cfg.ConversationGreeting,
	}, log)
}

// ProvideRegistry provides the realtime connection registry.
func ProvideRegistry(log zerolog.Logger) *realtime.Registry {
	return realtime.NewRegistry(log)
}

// ProvideRelayRouter provides the relay service.
func ProvideRelayRouter(reconciler *reconcile.Service, inbox provider.InboxClient, stores *Stores, registry *realtime.Registry, echoes *cache.EchoCache, log zerolog.Logger) relay.Service {
	return relay.NewRouter(relay.Deps{
		Reconciler: reconciler,
		Inbox:      inbox,
		Users:      stores.Users,
		Groups:     stores.Groups,
		Messages:   stores.Messages,
		Fanout:     registry,
		Echoes:     echoes,
	}, log)
}

// ProvideProvisioningService provides the provisioning service.
func ProvideProvisioningService(reconciler *reconcile.Service, inbox provider.InboxClient, stores *Stores, cfg *config.Config, log zerolog.Logger) provisioning.Service {
	return provisioning.NewService(reconciler, inbox, stores.Users, stores.Groups, cfg.ConversationGreeting, log)
}

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
	stores *Stores,
	groups chat.GroupRepository,
	locker reconcile.Locker,
) (*Application, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
