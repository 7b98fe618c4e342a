package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/wangyingjie930/orderflow/internal/pkg/apperr"
	"github.com/wangyingjie930/orderflow/internal/pkg/httpclient"
	orderapp "github.com/wangyingjie930/orderflow/internal/service/order/application"
)

// OrderHTTPClient reaches the order module over its HTTP API, for deployments where it runs
// as a separate service. It satisfies the same contract as the in-process engine.
type OrderHTTPClient struct {
	resolve func() (string, error)
	client  *httpclient.Client
}

// NewOrderHTTPClient talks to a fixed base URL.
func NewOrderHTTPClient(baseURL string, client *httpclient.Client) *OrderHTTPClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return NewDiscoveredOrderHTTPClient(func() (string, error) { return baseURL, nil }, client)
}

// NewDiscoveredOrderHTTPClient resolves the base URL before every call, e.g. a healthy
// instance from the service registry.
func NewDiscoveredOrderHTTPClient(discover func() (string, error), client *httpclient.Client) *OrderHTTPClient {
	return &OrderHTTPClient{resolve: discover, client: client}
}

func (c *OrderHTTPClient) url(format string, args ...any) (string, error) {
	base, err := c.resolve()
	if err != nil {
		return "", pkgerrors.Wrap(err, "resolve order service")
	}
	return strings.TrimRight(base, "/") + fmt.Sprintf(format, args...), nil
}

func (c *OrderHTTPClient) FindByID(ctx context.Context, id uint64) (orderapp.OrderResponse, bool, error) {
	target, err := c.url("/api/v1/order/%d", id)
	if err != nil {
		return orderapp.OrderResponse{}, false, err
	}
	resp, err := c.client.Do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return orderapp.OrderResponse{}, false, pkgerrors.Wrapf(err, "get order %d", id)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var out orderapp.OrderResponse
		if err := resp.DecodeJSON(&out); err != nil {
			return orderapp.OrderResponse{}, false, err
		}
		return out, true, nil
	case http.StatusNotFound:
		return orderapp.OrderResponse{}, false, nil
	default:
		return orderapp.OrderResponse{}, false, remoteError(resp)
	}
}

func (c *OrderHTTPClient) Transition(ctx context.Context, id uint64, op orderapp.Operation) (orderapp.OrderResponse, error) {
	target, err := c.url("/api/v1/order/%d/%s", id, op)
	if err != nil {
		return orderapp.OrderResponse{}, err
	}
	resp, err := c.client.Do(ctx, http.MethodPatch, target, nil)
	if err != nil {
		return orderapp.OrderResponse{}, pkgerrors.Wrapf(err, "%s order %d", op, id)
	}
	if resp.StatusCode != http.StatusOK {
		return orderapp.OrderResponse{}, remoteError(resp)
	}
	var out orderapp.OrderResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return orderapp.OrderResponse{}, err
	}
	return out, nil
}

// remoteError rebuilds the classified failure from the order service's error contract, so
// business outcomes keep their kind across the network hop.
func remoteError(resp *httpclient.Response) error {
	var body apperr.ErrorResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return err
	}
	kind := apperr.KindUnclassified
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = apperr.KindBusinessRule
		if len(body.Errors) > 0 {
			kind = apperr.KindValidation
		}
	case http.StatusNotFound:
		kind = apperr.KindNotFound
	case http.StatusConflict:
		kind = apperr.KindConflict
	}
	if kind == apperr.KindUnclassified {
		return fmt.Errorf("order service returned %d: %s", resp.StatusCode, body.Message)
	}
	return &apperr.Error{Kind: kind, Message: body.Message, Fields: body.Errors}
}
