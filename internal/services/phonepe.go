package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"truowners/internal/logger"
	"truowners/internal/models"

	"go.uber.org/zap"
)

const (
	phonePeSandboxURL    = "https://api-preprod.phonepe.com/apis/pg-sandbox"
	phonePeProductionURL = "https://api.phonepe.com/apis/pg"
)

// Состояния заказа на стороне шлюза.
const (
	OrderStatePending   = "PENDING"
	OrderStateCompleted = "COMPLETED"
	OrderStateFailed    = "FAILED"
)

// PaymentGateway — платёжный шлюз: создание заказа и запрос его статуса.
type PaymentGateway interface {
	Pay(ctx context.Context, req PayRequest) (*PayResponse, error)
	OrderStatus(ctx context.Context, merchantOrderID string) (*OrderStatus, error)
}

type PayRequest struct {
	MerchantOrderID string
	AmountPaise     int64
	UserID          int64
	PlanID          int64
	SubscriptionID  int64
}

type PayResponse struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	RedirectURL string `json:"redirectUrl"`
	ExpireAt    int64  `json:"expireAt"`
}

type PaymentAttempt struct {
	TransactionID string `json:"transactionId"`
	PaymentMode   string `json:"paymentMode"`
	State         string `json:"state"`
	Amount        int64  `json:"amount"`
	ErrorCode     string `json:"errorCode"`
}

type OrderStatus struct {
	OrderID        string           `json:"orderId"`
	State          string           `json:"state"`
	Amount         int64            `json:"amount"`
	ErrorCode      string           `json:"errorCode"`
	PaymentDetails []PaymentAttempt `json:"paymentDetails"`
	Raw            json.RawMessage  `json:"-"`
}

// Outcome переводит ответ шлюза в итог для платежа.
func (o *OrderStatus) Outcome() models.PaymentOutcome {
	out := models.PaymentOutcome{
		Status:               models.PaymentPending,
		GatewayTransactionID: o.OrderID,
		ResponseCode:         o.State,
		Raw:                  o.Raw,
	}
	switch strings.ToUpper(o.State) {
	case OrderStateCompleted:
		out.Status = models.PaymentSuccess
	case OrderStateFailed:
		out.Status = models.PaymentFailed
	}
	if n := len(o.PaymentDetails); n > 0 {
		last := o.PaymentDetails[n-1]
		if last.TransactionID != "" {
			out.GatewayTransactionID = last.TransactionID
		}
		out.PaymentMethod = last.PaymentMode
		if last.ErrorCode != "" {
			out.ResponseMessage = last.ErrorCode
		}
	}
	if out.ResponseMessage == "" {
		out.ResponseMessage = o.ErrorCode
	}
	return out
}

type PhonePeService struct {
	ClientID      string
	ClientSecret  string
	ClientVersion string
	BaseURL       string
	RedirectURL   string
	HTTPClient    *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewPhonePeService(clientID, clientSecret, clientVersion, env, redirectURL string) *PhonePeService {
	base := phonePeSandboxURL
	if env == "production" || env == "prod" {
		base = phonePeProductionURL
	}
	return &PhonePeService{
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		ClientVersion: clientVersion,
		BaseURL:       base,
		RedirectURL:   redirectURL,
		HTTPClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

type oauthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	TokenType   string `json:"token_type"`
}

// accessToken возвращает токен из кэша или запрашивает новый за минуту до истечения.
func (s *PhonePeService) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Add(time.Minute).Before(s.tokenExpiry) {
		return s.token, nil
	}

	form := url.Values{}
	form.Set("client_id", s.ClientID)
	form.Set("client_version", s.ClientVersion)
	form.Set("client_secret", s.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var res oauthResponse
	if err := s.do(req, &res); err != nil {
		return "", fmt.Errorf("phonepe oauth: %w", err)
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("phonepe oauth: empty access token")
	}

	s.token = res.AccessToken
	s.tokenExpiry = time.Unix(res.ExpiresAt, 0)
	if res.ExpiresAt == 0 {
		s.tokenExpiry = time.Now().Add(10 * time.Minute)
	}
	return s.token, nil
}

type payRequestBody struct {
	MerchantOrderID string            `json:"merchantOrderId"`
	Amount          int64             `json:"amount"`
	MetaInfo        map[string]string `json:"metaInfo"`
	PaymentFlow     paymentFlow       `json:"paymentFlow"`
}

type paymentFlow struct {
	Type         string       `json:"type"`
	MerchantUrls merchantUrls `json:"merchantUrls"`
}

type merchantUrls struct {
	RedirectURL string `json:"redirectUrl"`
}

func (s *PhonePeService) Pay(ctx context.Context, in PayRequest) (*PayResponse, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	redirect := s.RedirectURL
	sep := "?"
	if strings.Contains(redirect, "?") {
		sep = "&"
	}
	redirect += sep + "merchantTransactionId=" + url.QueryEscape(in.MerchantOrderID)

	body := payRequestBody{
		MerchantOrderID: in.MerchantOrderID,
		Amount:          in.AmountPaise,
		MetaInfo: map[string]string{
			"udf1": fmt.Sprint(in.UserID),
			"udf2": fmt.Sprint(in.PlanID),
			"udf3": fmt.Sprint(in.SubscriptionID),
		},
		PaymentFlow: paymentFlow{
			Type:         "PG_CHECKOUT",
			MerchantUrls: merchantUrls{RedirectURL: redirect},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/checkout/v2/pay", bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "O-Bearer "+token)

	var res PayResponse
	if err := s.do(req, &res); err != nil {
		return nil, fmt.Errorf("phonepe pay: %w", err)
	}
	logger.WithCtx(ctx).Info("Заказ создан в PhonePe", zap.String("merchant_order_id", in.MerchantOrderID), zap.String("order_id", res.OrderID))
	return &res, nil
}

func (s *PhonePeService) OrderStatus(ctx context.Context, merchantOrderID string) (*OrderStatus, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := s.BaseURL + "/checkout/v2/order/" + url.PathEscape(merchantOrderID) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "O-Bearer "+token)

	var raw json.RawMessage
	if err := s.do(req, &raw); err != nil {
		return nil, fmt.Errorf("phonepe status: %w", err)
	}
	var st OrderStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	st.Raw = raw
	return &st, nil
}

func (s *PhonePeService) do(req *http.Request, out interface{}) error {
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}
