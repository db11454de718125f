// Package api holds thin, typed wrappers over the request gateway for each
// LMS resource. There is deliberately no logic here beyond marshalling and
// path construction; authorization, refresh and error classification all live
// in the gateway.
package api

import (
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-lms-client/gateway"
)

// Client exposes the LMS REST resources through the gateway pipeline.
type Client struct {
	gw *gateway.Gateway
}

// New creates an API client over the given gateway.
func New(gw *gateway.Gateway) (*Client, error) {
	if gw == nil {
		return nil, errors.New("[api.New] gateway is required")
	}
	return &Client{gw: gw}, nil
}
