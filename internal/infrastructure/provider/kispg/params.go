package kispg

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/arisu-sports/lesson-server/internal/domain/gateway"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
)

// InitiationParams is the parameter set posted to the KISPG payment window.
type InitiationParams struct {
	MID          string `json:"mid"`
	Moid         string `json:"moid"`
	Amt          string `json:"amt"`
	ItemName     string `json:"itemName"`
	BuyerName    string `json:"buyerName"`
	BuyerTel     string `json:"buyerTel"`
	BuyerEmail   string `json:"buyerEmail"`
	ReturnURL    string `json:"returnUrl"`
	NotifyURL    string `json:"notifyUrl"`
	EdiDate      string `json:"ediDate"`
	RequestHash  string `json:"requestHash"`
	MbsReserved1 string `json:"mbsReserved1"`
}

// BuyerInfo carries the buyer fields required by the payment window.
type BuyerInfo struct {
	Name  string
	Tel   string
	Email string
}

// requestHash signs a merchant API request: SHA-256 over ediDate + mid + amt
// + merchant key, hex encoded.
func requestHash(ediDate, mid, amt, merchantKey string) string {
	sum := sha256.Sum256([]byte(ediDate + mid + amt + merchantKey))
	return hex.EncodeToString(sum[:])
}

// BuildInitiationParams computes the payment window parameters for an
// enrollment. Deterministic for a given enrollment and amount: ediDate and
// the moid nonce come from the enrollment creation time, so reloading the
// payment page before expiry regenerates identical params.
func (c *Client) BuildInitiationParams(enrollment *model.Enrollment, lessonTitle string, buyer BuyerInfo) *InitiationParams {
	amt := strconv.FormatInt(enrollment.TotalAmount().IntPart(), 10)
	ediDate := enrollment.CreatedAt.Format("20060102150405")
	moid := gateway.BuildMoid(enrollment.ID, enrollment.CreatedAt)

	return &InitiationParams{
		MID:          c.mid,
		Moid:         moid,
		Amt:          amt,
		ItemName:     lessonTitle,
		BuyerName:    buyer.Name,
		BuyerTel:     buyer.Tel,
		BuyerEmail:   buyer.Email,
		ReturnURL:    c.returnURL,
		NotifyURL:    c.notifyURL,
		EdiDate:      ediDate,
		RequestHash:  requestHash(ediDate, c.mid, amt, c.merchantKey),
		MbsReserved1: strconv.FormatInt(enrollment.ID, 10),
	}
}
