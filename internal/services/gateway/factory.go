package gateway

import (
	"context"
	"fmt"

	"eventhub/internal/services/gateway/razorpay"
)

// Factory implements GatewayFactory interface
type Factory struct{}

// NewFactory creates a new gateway factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateGateway creates a gateway instance based on provider type and configuration
func (f *Factory) CreateGateway(ctx context.Context, provider Provider, config any) (PaymentGateway, error) {
	switch provider {
	case ProviderRazorpay:
		rzpConfig, ok := config.(*razorpay.Config)
		if !ok {
			return nil, fmt.Errorf("invalid Razorpay config type, expected *razorpay.Config")
		}
		return NewRazorpayAdapter(rzpConfig)

	case ProviderStripe:
		return nil, fmt.Errorf("stripe gateway provider not implemented yet")

	default:
		return nil, fmt.Errorf("unsupported gateway provider: %s", provider)
	}
}

// GetSupportedProviders returns list of supported gateway providers
func (f *Factory) GetSupportedProviders() []Provider {
	return []Provider{
		ProviderRazorpay,
	}
}

// Registry manages multiple gateway instances
type Registry struct {
	gateways map[Provider]PaymentGateway
	factory  GatewayFactory
	primary  Provider
}

// NewRegistry creates a new gateway registry
func NewRegistry(factory GatewayFactory) *Registry {
	return &Registry{
		gateways: make(map[Provider]PaymentGateway),
		factory:  factory,
	}
}

// Register creates and registers a gateway instance
func (r *Registry) Register(ctx context.Context, provider Provider, config any) error {
	gw, err := r.factory.CreateGateway(ctx, provider, config)
	if err != nil {
		return fmt.Errorf("failed to create %s gateway: %w", provider, err)
	}

	r.gateways[provider] = gw

	// Set first registered gateway as primary
	if r.primary == "" {
		r.primary = provider
	}

	return nil
}

// Get returns a gateway instance by provider
func (r *Registry) Get(provider Provider) (PaymentGateway, error) {
	gw, exists := r.gateways[provider]
	if !exists {
		return nil, fmt.Errorf("gateway provider %s not registered", provider)
	}
	return gw, nil
}

// Primary returns the primary gateway instance
func (r *Registry) Primary() (PaymentGateway, error) {
	if r.primary == "" {
		return nil, fmt.Errorf("no primary gateway configured")
	}
	return r.Get(r.primary)
}
