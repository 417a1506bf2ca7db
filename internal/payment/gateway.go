package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/money"
)

// Gateway wraps the salon API's M-Pesa endpoints. Implementations do not retry; every
// transport failure or non-2xx answer is returned as an error.
type Gateway interface {
	Initiate(ctx context.Context, appointmentID int64, phone string) (*InitiateResult, error)
	Status(ctx context.Context, appointmentID int64) (*StatusResult, error)
	Verify(ctx context.Context, appointmentID int64, receipt string) (*VerifyResult, error)
}

type InitiateResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
	CheckoutRequestID string `json:"CheckoutRequestID,omitempty"`
	MerchantRequestID string `json:"MerchantRequestID,omitempty"`
}

type StatusResult struct {
	AppointmentID      int64                     `json:"appointment_id"`
	PaymentStatus      appointment.PaymentStatus `json:"payment_status"`
	MpesaTransactionID string                    `json:"mpesa_transaction_id,omitempty"`
	AmountPaid         money.Amount              `json:"amount_paid"`
	PaymentDate        *string                   `json:"payment_date,omitempty"`
	AppointmentStatus  appointment.Status        `json:"appointment_status,omitempty"`
}

type VerifyResult struct {
	Success           bool                      `json:"success"`
	Message           string                    `json:"message,omitempty"`
	Error             string                    `json:"error,omitempty"`
	AppointmentID     int64                     `json:"appointment_id,omitempty"`
	PaymentStatus     appointment.PaymentStatus `json:"payment_status,omitempty"`
	AppointmentStatus appointment.Status        `json:"appointment_status,omitempty"`
}

type initiateRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	PhoneNumber   string `json:"phone_number"`
}

type verifyRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	MpesaReceipt  string `json:"mpesa_receipt"`
}

// APIGateway is the Gateway backed by the salon REST API.
type APIGateway struct {
	client *apiclient.Client
}

func NewAPIGateway(client *apiclient.Client) *APIGateway {
	return &APIGateway{client: client}
}

func (g *APIGateway) Initiate(ctx context.Context, appointmentID int64, phone string) (*InitiateResult, error) {
	var out InitiateResult
	req := initiateRequest{AppointmentID: appointmentID, PhoneNumber: phone}
	if err := g.client.Do(ctx, http.MethodPost, "/mpesa/initiate/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *APIGateway) Status(ctx context.Context, appointmentID int64) (*StatusResult, error) {
	var out StatusResult
	path := fmt.Sprintf("/mpesa/status/%d/", appointmentID)
	if err := g.client.Do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *APIGateway) Verify(ctx context.Context, appointmentID int64, receipt string) (*VerifyResult, error) {
	var out VerifyResult
	req := verifyRequest{AppointmentID: appointmentID, MpesaReceipt: receipt}
	if err := g.client.Do(ctx, http.MethodPost, "/mpesa/verify/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GatewayFor returns an API gateway that authenticates as token. Payment sessions outlive
// the request that opened them, so the token is captured instead of read from the context.
func GatewayFor(client *apiclient.Client, token string) *APIGateway {
	if token == "" {
		return NewAPIGateway(client)
	}
	return NewAPIGateway(client.WithCredentials(apiclient.StaticToken(token)))
}
