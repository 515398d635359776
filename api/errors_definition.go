//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 404, 409 or 412, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500, 502 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 4010, 4011 and 4013 exist, 4012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound  = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody     = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrUnknownAction     = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown action")}
	ErrWalletConnect     = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("cannot connect wallet")}
	ErrNotConnected      = Error{Code: 40010, HTTPstatus: http.StatusPreconditionFailed, Err: fmt.Errorf("wallet not connected")}
	ErrEmptyAmount       = Error{Code: 40011, HTTPstatus: http.StatusPreconditionFailed, Err: fmt.Errorf("amount is empty")}
	ErrNotOwner          = Error{Code: 40012, HTTPstatus: http.StatusPreconditionFailed, Err: fmt.Errorf("connected address is not the contract owner")}
	ErrActionInProgress  = Error{Code: 40013, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("another action is in progress")}
	ErrInvalidQRCodeSize = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid QR code size")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrRefreshFailed              = Error{Code: 50003, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("cannot read contract state")}
	ErrQRCodeFailed               = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("cannot generate QR code")}
)
