package payment

import (
	"context"

	"readingbot/pkg/yookassa"
)

// YooKassaGateway adapts the YooKassa client to Gateway.
type YooKassaGateway struct {
	client *yookassa.Client
}

func NewYooKassaGateway(client *yookassa.Client) Gateway {
	return &YooKassaGateway{client: client}
}

func (g *YooKassaGateway) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	p, err := g.client.CreatePayment(ctx, yookassa.PaymentRequest{
		Amount: yookassa.Amount{
			Value:    req.Amount.Decimal(),
			Currency: req.Amount.Currency,
		},
		Capture: true,
		Confirmation: yookassa.Confirmation{
			Type:      yookassa.ConfirmationRedirect,
			ReturnURL: g.client.ReturnURL(),
		},
		Description: req.Description,
		Metadata:    req.Metadata,
	}, req.IdempotenceKey)
	if err != nil {
		return nil, err
	}
	return toCharge(p), nil
}

func (g *YooKassaGateway) GetCharge(ctx context.Context, externalID string) (*Charge, error) {
	p, err := g.client.GetPayment(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return toCharge(p), nil
}

func toCharge(p *yookassa.Payment) *Charge {
	c := &Charge{
		ExternalID: p.ID,
		Status:     p.Status,
		Paid:       p.Paid,
	}
	if p.Confirmation != nil {
		c.ConfirmationURL = p.Confirmation.ConfirmationURL
	}
	return c
}
