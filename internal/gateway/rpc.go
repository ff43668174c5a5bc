// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	stderrors "errors"
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/dotandev/tlsign/internal/errors"
)

// RPCServiceName is the JSON-RPC namespace; the sign method is "tlsign.Sign".
const RPCServiceName = "tlsign"

// RPCService exposes the gateway over JSON-RPC 2.0.
type RPCService struct {
	gw *Gateway
}

// Sign handles tlsign.Sign calls with the same contract as POST /sign.
func (s *RPCService) Sign(r *http.Request, req *SigningRequest, resp *SigningResult) error {
	res, err := s.gw.Sign(r.Context(), *req)
	if err != nil {
		return toRPCError(err)
	}
	*resp = res
	return nil
}

func toRPCError(err error) *json2.Error {
	if stderrors.Is(err, errors.ErrMissingFields) {
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: MsgMissingFields}
	}
	return &json2.Error{
		Code:    json2.E_SERVER,
		Message: MsgSigningFailed,
		Data:    map[string]string{"message": primitiveMessage(err)},
	}
}

// NewRPCHandler builds the JSON-RPC handler mounted on /rpc.
func NewRPCHandler(gw *Gateway) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	server.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")

	if err := server.RegisterService(&RPCService{gw: gw}, RPCServiceName); err != nil {
		return nil, err
	}
	return server, nil
}
