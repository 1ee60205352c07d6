package processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeConfig struct {
	SecretKey string
	// APIURL replaces https://api.stripe.com when set.
	APIURL            string
	Currency          string
	HTTPClient        *http.Client
	MaxNetworkRetries int64
	Logger            stripe.LeveledLoggerInterface
}

type StripeProcessor struct {
	api      *client.API
	currency string
}

func NewStripeProcessor(cfg StripeConfig) *StripeProcessor {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        cfg.HTTPClient,
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     cfg.Logger,
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &StripeProcessor{
		api:      client.New(cfg.SecretKey, backends),
		currency: cfg.Currency,
	}
}

// CreateAuthorization places a hold: manual capture, confirmed immediately.
func (p *StripeProcessor) CreateAuthorization(ctx context.Context, req PaymentRequest) (*Intent, error) {
	return p.createIntent(ctx, req, stripe.PaymentIntentCaptureMethodManual)
}

// CreateImmediateCharge authorizes and captures in one call.
func (p *StripeProcessor) CreateImmediateCharge(ctx context.Context, req PaymentRequest) (*Intent, error) {
	return p.createIntent(ctx, req, stripe.PaymentIntentCaptureMethodAutomatic)
}

func (p *StripeProcessor) Capture(ctx context.Context, intentID string, amountMinor int64, idempotencyKey string) (*Intent, error) {
	params := &stripe.PaymentIntentCaptureParams{
		AmountToCapture: stripe.Int64(amountMinor),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := p.api.PaymentIntents.Capture(intentID, params)
	return toIntent(pi, err)
}

func (p *StripeProcessor) createIntent(ctx context.Context, req PaymentRequest, method stripe.PaymentIntentCaptureMethod) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountMinor),
		Currency:           stripe.String(p.currency),
		Customer:           stripe.String(req.CustomerToken),
		PaymentMethod:      stripe.String(req.PaymentMethodToken),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CaptureMethod:      stripe.String(string(method)),
		Confirm:            stripe.Bool(true),
		OffSession:         stripe.Bool(true),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := p.api.PaymentIntents.New(params)
	return toIntent(pi, err)
}

// toIntent folds a Stripe API error into the Intent; anything else is a
// transport failure and is returned as an error.
func toIntent(pi *stripe.PaymentIntent, err error) (*Intent, error) {
	if err != nil {
		var stripeErr *stripe.Error
		if !errors.As(err, &stripeErr) {
			return nil, fmt.Errorf("stripe request: %w", err)
		}
		intent := &Intent{
			Error: &IntentError{
				Message:     stripeErr.Msg,
				Code:        string(stripeErr.Code),
				Type:        string(stripeErr.Type),
				DeclineCode: string(stripeErr.DeclineCode),
			},
		}
		if stripeErr.PaymentIntent != nil {
			intent.ID = stripeErr.PaymentIntent.ID
			intent.Status = IntentStatus(stripeErr.PaymentIntent.Status)
		}
		return intent, nil
	}

	return &Intent{
		ID:     pi.ID,
		Status: IntentStatus(pi.Status),
	}, nil
}
