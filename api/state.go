package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/prodeposit-dapp/types"
)

// state returns the current snapshot.
func (a *API) state(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, a.ctrl.Snapshot())
}

// refresh reads balance and interest from the contract and returns the new
// snapshot.
func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	if err := a.ctrl.Refresh(r.Context()); err != nil {
		controllerError(err).Write(w)
		return
	}
	httpWriteJSON(w, a.ctrl.Snapshot())
}

// setInput stores the amount field of an action.
func (a *API) setInput(w http.ResponseWriter, r *http.Request) {
	action, ok := actionParam(w, r)
	if !ok {
		return
	}
	req := &AmountRequest{}
	if err := decodeBody(r, req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if req.Amount == nil {
		ErrMalformedBody.With("amount required").Write(w)
		return
	}
	if err := a.ctrl.SetInput(action, *req.Amount); err != nil {
		controllerError(err).Write(w)
		return
	}
	httpWriteJSON(w, a.ctrl.Snapshot())
}

// startAction starts the lifecycle of an action and returns its id. The
// amount of the body, if any, is stored only when the action is accepted. The
// lifecycle goes on after the response is sent; its progress is reported in
// the status message and the event stream.
func (a *API) startAction(w http.ResponseWriter, r *http.Request) {
	action, ok := actionParam(w, r)
	if !ok {
		return
	}
	req := &AmountRequest{}
	if err := decodeBody(r, req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	id, err := a.ctrl.Go(action, req.Amount)
	if err != nil {
		controllerError(err).Write(w)
		return
	}
	httpWriteJSONStatus(w, http.StatusAccepted, &ActionResponse{ID: id, Action: action})
}

// status returns the current status message or 204 if there is none.
func (a *API) status(w http.ResponseWriter, r *http.Request) {
	msg := a.ctrl.Status()
	if msg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpWriteJSON(w, msg)
}

func actionParam(w http.ResponseWriter, r *http.Request) (types.Action, bool) {
	var action types.Action
	_ = action.UnmarshalText([]byte(chi.URLParam(r, ActionURLParam)))
	if !action.Valid() {
		ErrUnknownAction.With(chi.URLParam(r, ActionURLParam)).Write(w)
		return types.ActionNone, false
	}
	return action, true
}
