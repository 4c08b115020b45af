package kispg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/config"
	"github.com/arisu-sports/lesson-server/internal/domain/gateway"
)

const successResultCd = "0000"

// Client talks to the KISPG merchant API. It implements
// gateway.PaymentGateway and additionally builds payment window parameters
// and parses inbound callbacks.
type Client struct {
	mid         string
	merchantKey string
	baseURL     string
	returnURL   string
	notifyURL   string
	client      *http.Client
	logger      *zap.Logger
}

// NewClient creates a new KISPG client
func NewClient(cfg config.KISPGConfig, logger *zap.Logger) *Client {
	return &Client{
		mid:         cfg.MID,
		merchantKey: cfg.MerchantKey,
		baseURL:     cfg.APIBaseURL,
		returnURL:   cfg.ReturnURL,
		notifyURL:   cfg.NotifyURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

// Name returns the gateway name.
func (c *Client) Name() string {
	return "kispg"
}

// VerifyTransaction fetches the authoritative status of a transaction.
// POST /api/v1/transactions/query
func (c *Client) VerifyTransaction(ctx context.Context, ref gateway.TransactionRef) (*gateway.TransactionStatus, error) {
	ediDate := time.Now().Format("20060102150405")
	body := map[string]string{
		"mid":     c.mid,
		"tid":     ref.TID,
		"moid":    ref.Moid,
		"ediDate": ediDate,
		"hash":    requestHash(ediDate, c.mid, "", c.merchantKey),
	}

	respBody, err := c.post(ctx, "/api/v1/transactions/query", body)
	if err != nil {
		return nil, err
	}

	var result struct {
		ResultCd  string `json:"resultCd"`
		ResultMsg string `json:"resultMsg"`
		TID       string `json:"tid"`
		Moid      string `json:"moid"`
		Amt       string `json:"amt"`
		Status    string `json:"status"`
		PayMethod string `json:"payMethod"`
		AppDtm    string `json:"appDtm"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &gateway.GatewayError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse transaction query response",
			Details: err.Error(),
		}
	}

	if result.ResultCd != successResultCd {
		return nil, &gateway.GatewayError{
			Code:    result.ResultCd,
			Message: result.ResultMsg,
			Details: string(respBody),
		}
	}

	amount, _ := strconv.ParseInt(result.Amt, 10, 64)

	status := &gateway.TransactionStatus{
		TID:       result.TID,
		Moid:      result.Moid,
		Amount:    amount,
		Paid:      result.Status == "paid",
		StatusCd:  result.Status,
		PayMethod: result.PayMethod,
	}
	if t, err := time.ParseInLocation("20060102150405", result.AppDtm, time.Local); err == nil {
		status.PaidAt = &t
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(respBody, &raw); err == nil {
		status.Raw = raw
	}

	c.logger.Debug("KISPG transaction verified",
		zap.String("tid", status.TID),
		zap.String("moid", status.Moid),
		zap.Bool("paid", status.Paid),
		zap.Int64("amount", status.Amount))

	return status, nil
}

// RequestRefund cancels all or part of a settled transaction.
// POST /api/v1/cancel
func (c *Client) RequestRefund(ctx context.Context, req *gateway.RefundRequest) (*gateway.RefundResult, error) {
	ediDate := time.Now().Format("20060102150405")
	amt := strconv.FormatInt(req.Amount, 10)
	partialCode := "0"
	if req.Partial {
		partialCode = "1"
	}

	body := map[string]string{
		"mid":               c.mid,
		"tid":               req.TID,
		"moid":              req.Moid,
		"cancelAmt":         amt,
		"partialCancelCode": partialCode,
		"cancelMsg":         req.Reason,
		"ediDate":           ediDate,
		"hash":              requestHash(ediDate, c.mid, amt, c.merchantKey),
	}

	respBody, err := c.post(ctx, "/api/v1/cancel", body)
	if err != nil {
		return nil, err
	}

	var result struct {
		ResultCd  string `json:"resultCd"`
		ResultMsg string `json:"resultMsg"`
		CancelTID string `json:"cancelTid"`
		CancelDtm string `json:"cancelDtm"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &gateway.GatewayError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse cancel response",
			Details: err.Error(),
		}
	}

	if result.ResultCd != successResultCd {
		c.logger.Error("KISPG cancel rejected",
			zap.String("tid", req.TID),
			zap.String("result_cd", result.ResultCd),
			zap.String("result_msg", result.ResultMsg))
		return nil, &gateway.GatewayError{
			Code:    result.ResultCd,
			Message: result.ResultMsg,
			Details: string(respBody),
		}
	}

	canceledAt := time.Now()
	if t, err := time.ParseInLocation("20060102150405", result.CancelDtm, time.Local); err == nil {
		canceledAt = t
	}

	refundResult := &gateway.RefundResult{
		CancelTID:  result.CancelTID,
		CanceledAt: canceledAt,
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(respBody, &raw); err == nil {
		refundResult.Raw = raw
	}

	c.logger.Info("KISPG refund completed",
		zap.String("tid", req.TID),
		zap.Int64("amount", req.Amount),
		zap.Bool("partial", req.Partial))

	return refundResult, nil
}

func (c *Client) post(ctx context.Context, path string, body map[string]string) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &gateway.GatewayError{
			Code:    "MARSHAL_ERROR",
			Message: "Failed to prepare request",
			Details: err.Error(),
		}
	}

	url := fmt.Sprintf("%s%s", c.baseURL, path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &gateway.GatewayError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("KISPG API request failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, &gateway.GatewayError{
			Code:    "API_ERROR",
			Message: "KISPG API request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &gateway.GatewayError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read response",
			Details: err.Error(),
		}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.Unmarshal(respBody, &errResp)

		code, _ := errResp["resultCd"].(string)
		message, _ := errResp["resultMsg"].(string)
		if code == "" {
			code = strconv.Itoa(resp.StatusCode)
		}

		return nil, &gateway.GatewayError{
			Code:    code,
			Message: message,
			Details: string(respBody),
		}
	}

	return respBody, nil
}
