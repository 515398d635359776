package api

import (
	"net/http"
	"strconv"

	"github.com/skip2/go-qrcode"
	"github.com/vocdoni/prodeposit-dapp/log"
)

const (
	defaultQRCodeSize = 256
	maxQRCodeSize     = 1024
)

// config returns the public dApp configuration.
func (a *API) config(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, a.info)
}

// session returns the connected address, if any.
func (a *API) session(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, a.sessionResponse())
}

// connect connects a wallet with a private key or an encrypted keystore. The
// controller is rebound asynchronously by the session binder.
func (a *API) connect(w http.ResponseWriter, r *http.Request) {
	req := &ConnectRequest{}
	if err := decodeBody(r, req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	var err error
	switch {
	case req.PrivateKey != "":
		_, err = a.wallet.ConnectHexKey(req.PrivateKey)
	case len(req.Keystore) > 0:
		_, err = a.wallet.ConnectKeystore(req.Keystore, req.Password)
	default:
		ErrMalformedBody.With("privateKey or keystore required").Write(w)
		return
	}
	if err != nil {
		ErrWalletConnect.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, a.sessionResponse())
}

// disconnect drops the wallet session.
func (a *API) disconnect(w http.ResponseWriter, r *http.Request) {
	a.wallet.Disconnect()
	httpWriteOK(w)
}

// sessionQR writes a PNG QR code with the connected address. The size in
// pixels can be set with the size query parameter.
func (a *API) sessionQR(w http.ResponseWriter, r *http.Request) {
	s := a.wallet.Session()
	if s == nil {
		ErrNotConnected.Write(w)
		return
	}
	size := defaultQRCodeSize
	if v := r.URL.Query().Get("size"); v != "" {
		var err error
		if size, err = strconv.Atoi(v); err != nil || size < 64 || size > maxQRCodeSize {
			ErrInvalidQRCodeSize.Withf("must be between 64 and %d", maxQRCodeSize).Write(w)
			return
		}
	}
	png, err := qrcode.Encode(s.Address().Hex(), qrcode.Medium, size)
	if err != nil {
		ErrQRCodeFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		log.Warnw("failed to write QR code", "error", err)
	}
}

func (a *API) sessionResponse() *SessionResponse {
	s := a.wallet.Session()
	if s == nil {
		return &SessionResponse{}
	}
	addr := s.Address()
	return &SessionResponse{Connected: true, Address: &addr}
}
