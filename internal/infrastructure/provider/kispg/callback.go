package kispg

import (
	"net/url"
	"strconv"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/gateway"
)

// ParseCallback validates an inbound confirmation signal (webhook notify or
// client return, both form encoded) into the channel-agnostic CallbackResult.
// The moid must carry a parseable enrollment id; anything else is rejected as
// an invalid callback.
func ParseCallback(params url.Values) (*gateway.CallbackResult, error) {
	moid := params.Get("moid")
	if moid == "" {
		moid = params.Get("mbsReserved")
	}
	if moid == "" {
		return nil, &domainErrors.InvalidCallbackError{Reason: "missing moid"}
	}
	if _, err := gateway.ParseMoid(moid); err != nil {
		return nil, err
	}

	resultCd := params.Get("resultCd")
	if resultCd == "" {
		return nil, &domainErrors.InvalidCallbackError{Reason: "missing resultCd"}
	}

	tid := params.Get("tid")
	if resultCd == successResultCd && tid == "" {
		return nil, &domainErrors.InvalidCallbackError{Reason: "success callback without tid"}
	}

	amount, err := strconv.ParseInt(params.Get("amt"), 10, 64)
	if err != nil && resultCd == successResultCd {
		return nil, &domainErrors.InvalidCallbackError{Reason: "missing or malformed amt"}
	}

	raw := make(map[string]interface{}, len(params))
	for k := range params {
		raw[k] = params.Get(k)
	}

	return &gateway.CallbackResult{
		Success:      resultCd == successResultCd,
		TID:          tid,
		Moid:         moid,
		Amount:       amount,
		ResultCd:     resultCd,
		ErrorMessage: params.Get("resultMsg"),
		PayMethod:    params.Get("payMethod"),
		Raw:          raw,
	}, nil
}
