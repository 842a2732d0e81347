package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/pkg/httpclient"
)

// ZarinPalGateway implements the Gateway interface for ZarinPal's v4 API.
type ZarinPalGateway struct {
	merchantID string
	sandbox    bool
	apiBase    string
	client     *httpclient.Client
}

func NewZarinPalGateway(merchantID string, sandbox bool) *ZarinPalGateway {
	return &ZarinPalGateway{
		merchantID: merchantID,
		sandbox:    sandbox,
		client:     httpclient.New().WithTimeout(30 * time.Second),
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (z *ZarinPalGateway) WithBaseURL(u string) *ZarinPalGateway {
	z.apiBase = u
	return z
}

func (z *ZarinPalGateway) Name() string {
	return "zarinpal"
}

func (z *ZarinPalGateway) baseURL() string {
	if z.apiBase != "" {
		return z.apiBase
	}
	if z.sandbox {
		return "https://sandbox.zarinpal.com"
	}
	return "https://api.zarinpal.com"
}

func (z *ZarinPalGateway) PaymentURL(authority string) string {
	if z.sandbox {
		return "https://sandbox.zarinpal.com/pg/StartPay/" + authority
	}
	return "https://www.zarinpal.com/pg/StartPay/" + authority
}

type zarinPalData struct {
	Code      int    `json:"code"`
	Authority string `json:"authority"`
	RefID     int64  `json:"ref_id"`
}

type zarinPalResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// decode unwraps ZarinPal's envelope. The data field is `[]` on errors and
// an object on success, so it is parsed in two steps.
func (r *zarinPalResponse) decode() (*zarinPalData, string) {
	var data zarinPalData
	if len(r.Data) > 0 && json.Unmarshal(r.Data, &data) == nil && data.Code != 0 {
		return &data, ""
	}
	return nil, string(r.Errors)
}

func (z *ZarinPalGateway) CreatePayment(ctx context.Context, amount int, description, callbackURL string) (*PaymentResult, error) {
	body := map[string]interface{}{
		"merchant_id":  z.merchantID,
		"amount":       amount,
		"description":  description,
		"callback_url": callbackURL,
	}

	resp, err := z.client.Post(z.baseURL()+"/pg/v4/payment/request.json", body)
	if err != nil {
		return nil, fmt.Errorf("zarinpal create payment failed: %w", err)
	}

	var result zarinPalResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("zarinpal parse error: %w", err)
	}

	data, gwErr := result.decode()
	if data == nil {
		return nil, fmt.Errorf("zarinpal request rejected: %s", gwErr)
	}
	if data.Code != 100 || data.Authority == "" {
		return nil, fmt.Errorf("zarinpal request failed with code %d", data.Code)
	}

	return &PaymentResult{
		PaymentURL: z.PaymentURL(data.Authority),
		Authority:  data.Authority,
	}, nil
}

func (z *ZarinPalGateway) VerifyPayment(ctx context.Context, authority string, amount int) (*VerifyResult, error) {
	body := map[string]interface{}{
		"merchant_id": z.merchantID,
		"amount":      amount,
		"authority":   authority,
	}

	resp, err := z.client.Post(z.baseURL()+"/pg/v4/payment/verify.json", body)
	if err != nil {
		return nil, fmt.Errorf("zarinpal verify failed: %w", err)
	}

	var result zarinPalResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("zarinpal verify parse error: %w", err)
	}

	data, gwErr := result.decode()
	if data == nil {
		return &VerifyResult{Verified: false, Message: gwErr}, nil
	}

	// 101 means the transaction was already verified.
	if data.Code == 100 || data.Code == 101 {
		return &VerifyResult{
			Verified: true,
			RefID:    fmt.Sprintf("%d", data.RefID),
		}, nil
	}

	return &VerifyResult{
		Verified: false,
		Message:  fmt.Sprintf("verification failed with code: %d", data.Code),
	}, nil
}
