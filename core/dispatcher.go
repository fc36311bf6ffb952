package core

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const orderLocationMarker = "orders/"

// Dispatch sends one authenticated request to the provider API. Calls to any
// endpoint other than the token endpoint first refresh the access token when
// it is inside the refresh threshold.
//
// 200 and 201 responses succeed; every other status returns *ResponseError.
func (s *Session) Dispatch(ctx context.Context, req OutboundRequest) (*DispatchResult, error) {
	if s == nil {
		return nil, fmt.Errorf("core: session is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.isTokenEndpoint(req.Endpoint) {
		s.ensureFresh(ctx)
	}
	return s.dispatch(ctx, req)
}

func (s *Session) dispatch(ctx context.Context, req OutboundRequest) (result *DispatchResult, err error) {
	startedAt := time.Now().UTC()
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	requestID := uuid.NewString()
	fields := map[string]any{
		"request_id": requestID,
		"method":     method,
		"endpoint":   strings.TrimSpace(req.Endpoint),
	}
	defer func() {
		if result != nil {
			fields["status_code"] = result.StatusCode
		}
		s.observeOperation(ctx, startedAt, "dispatch", err, fields)
	}()

	endpointURL, err := s.endpointURL(req)
	if err != nil {
		return nil, s.mapError(err)
	}

	headers := map[string]string{}
	if !s.isTokenEndpoint(req.Endpoint) {
		if token := s.State().AccessToken; token != "" {
			headers["Authorization"] = "Bearer " + token
		}
	}
	body, contentType, err := encodeRequestBody(req)
	if err != nil {
		return nil, s.mapError(err)
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}

	response, err := s.transport.Do(ctx, TransportRequest{
		Method:  method,
		URL:     endpointURL,
		Headers: headers,
		Query:   cloneParams(req.Params),
		Body:    body,
		Timeout: req.Timeout,
		Metadata: map[string]any{
			"request_id": requestID,
		},
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	return s.classify(ctx, req, method, endpointURL, body, response)
}

func (s *Session) classify(
	ctx context.Context,
	req OutboundRequest,
	method string,
	endpointURL string,
	requestBody []byte,
	response TransportResponse,
) (*DispatchResult, error) {
	headers := response.Headers
	if headers == nil {
		headers = http.Header{}
	}
	switch response.StatusCode {
	case http.StatusOK, http.StatusCreated:
	default:
		respErr := &ResponseError{
			StatusCode: response.StatusCode,
			Method:     method,
			URL:        endpointURL,
			Header:     headers.Clone(),
			Body:       append([]byte(nil), response.Body...),
		}
		if respErr.Diagnosed() {
			s.logError(ctx, "provider request failed", map[string]any{
				"status_code": response.StatusCode,
				"url":         RedactURLQuery(endpointURL),
				"headers":     flattenHeaderValues(headers),
				"links":       headers.Values("Link"),
				"text":        string(response.Body),
			})
		} else {
			s.logWarn(ctx, "provider returned unhandled status", map[string]any{
				"status_code": response.StatusCode,
				"url":         RedactURLQuery(endpointURL),
			})
		}
		return nil, respErr
	}

	result := &DispatchResult{
		StatusCode: response.StatusCode,
		URL:        endpointURL,
		Headers:    headers,
		Body:       response.Body,
	}
	if req.WantOrderDetails {
		result.Order = &OrderDetails{
			OrderID:       OrderIDFromLocation(headers.Get("Location")),
			StatusCode:    response.StatusCode,
			Headers:       headers,
			Body:          response.Body,
			RequestMethod: method,
			RequestBody:   string(requestBody),
		}
		return result, nil
	}
	if isJSONContentType(headers.Get("Content-Type")) && strings.TrimSpace(string(response.Body)) != "" {
		var payload any
		if err := json.Unmarshal(response.Body, &payload); err != nil {
			return nil, s.mapError(goerrors.Wrap(err, goerrors.CategoryExternal, "core: decode response payload").
				WithTextCode(ErrorCodeExternalFailure).
				WithMetadata(map[string]any{"url": RedactURLQuery(endpointURL)}))
		}
		result.Payload = payload
	}
	return result, nil
}

func (s *Session) isTokenEndpoint(endpoint string) bool {
	return strings.Trim(strings.TrimSpace(endpoint), "/") == strings.Trim(s.config.TokenEndpoint, "/")
}

func (s *Session) endpointURL(req OutboundRequest) (string, error) {
	base := strings.TrimSpace(req.BaseURL)
	if base == "" {
		base = s.config.APIEndpoint
	}
	if _, err := url.Parse(base); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "core: invalid api base url").
			WithTextCode(ErrorCodeBadInput)
	}
	endpoint := strings.Trim(strings.TrimSpace(req.Endpoint), "/")
	if endpoint == "" {
		return "", goerrors.New("core: endpoint is required", goerrors.CategoryBadInput).
			WithTextCode(ErrorCodeBadInput)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Trim(s.config.APIVersion, "/") + "/" + endpoint, nil
}

func encodeRequestBody(req OutboundRequest) ([]byte, string, error) {
	switch req.Mode {
	case BodyModeForm:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	case BodyModeJSON:
		value := req.JSON
		if payload, ok := value.(OrderPayload); ok {
			resolved, err := payload.ToOrderPayload()
			if err != nil {
				return nil, "", goerrors.Wrap(err, goerrors.CategoryBadInput, "core: render order payload").
					WithTextCode(ErrorCodeBadInput)
			}
			value = resolved
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, "", goerrors.Wrap(err, goerrors.CategoryBadInput, "core: encode json body").
				WithTextCode(ErrorCodeBadInput)
		}
		return encoded, "application/json", nil
	default:
		return nil, "", nil
	}
}

// OrderIDFromLocation returns the text after "orders/" in a Location header,
// or "" when the header does not reference an order.
func OrderIDFromLocation(location string) string {
	_, orderID, found := strings.Cut(strings.TrimSpace(location), orderLocationMarker)
	if !found {
		return ""
	}
	return orderID
}

func isJSONContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func cloneParams(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for key, value := range params {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func flattenHeaderValues(headers http.Header) map[string]any {
	flat := make(map[string]any, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return RedactSensitiveMap(flat)
}
