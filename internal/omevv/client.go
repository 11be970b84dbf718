package omevv

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

const maxResponseBodyBytes int64 = 4 * 1024 * 1024

// vCenter scope header expected by the OMEVV gateway on console-scoped
// endpoints.
const vcenterIdentifierHeader = "x_omivv-api-vcenter-identifier"

// ClientConfig configures the OMEVV gateway REST client.
type ClientConfig struct {
	Hostname           string
	Port               int
	Username           string
	Password           string
	VCenterUUID        string
	CAPath             string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// operation identifies one controller endpoint in the client's template
// table.
type operation string

const (
	opListRepositoryProfiles operation = "list_repository_profiles"
	opRepositoryProfileByID  operation = "repository_profile_by_id"
	opTestConnection         operation = "test_connection"
	opListBaselineProfiles   operation = "list_baseline_profiles"
	opBaselineProfileByID    operation = "baseline_profile_by_id"
	opListClusters           operation = "list_clusters"
	opGroupsForClusters      operation = "groups_for_clusters"
	opUpdateJobByID          operation = "update_job_by_id"
)

// defaultEndpoints is the immutable endpoint-template table. %s slots are
// filled with the vCenter UUID and, where present, a resource id.
var defaultEndpoints = map[operation]string{
	opListRepositoryProfiles: "/RepositoryProfiles",
	opRepositoryProfileByID:  "/RepositoryProfiles/%d",
	opTestConnection:         "/RepositoryProfiles/TestConnection",
	opListBaselineProfiles:   "/Consoles/%s/BaselineProfiles",
	opBaselineProfileByID:    "/Consoles/%s/BaselineProfiles/%d",
	opListClusters:           "/Consoles/%s/Clusters",
	opGroupsForClusters:      "/Consoles/%s/Groups/getGroupsForClusters",
	opUpdateJobByID:          "/Consoles/%s/UpdateJobs/%d",
}

// Client is a thin HTTP wrapper around the OMEVV gateway REST API.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	baseURL    string
	endpoints  map[operation]string
}

// APIError represents an application-level error response from the OMEVV
// gateway. Code and Message carry the backend-provided errorCode/message
// body when the gateway returned one.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" || e.Message != "" {
		return fmt.Sprintf("omevv request %s %s failed: status=%d errorCode=%q message=%q",
			e.Method, e.Path, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("omevv request %s %s failed: status=%d", e.Method, e.Path, e.StatusCode)
}

// NewClient creates a new OMEVV gateway client. The hostname may carry an
// explicit scheme ("https://host:port"); plain HTTP is only honored when
// asked for that way.
func NewClient(config ClientConfig) (*Client, error) {
	host := strings.TrimSpace(config.Hostname)
	if host == "" {
		return nil, fmt.Errorf("omevv hostname is required")
	}
	if strings.TrimSpace(config.VCenterUUID) == "" {
		return nil, fmt.Errorf("omevv vcenter uuid is required")
	}

	scheme, hostPort, err := resolveEndpoint(host, config.Port)
	if err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	tlsConfig, err := buildTLSConfig(config.CAPath, config.InsecureSkipVerify)
	if err != nil {
		return nil, err
	}
	transport.TLSClientConfig = tlsConfig

	config.Timeout = timeout

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		baseURL:   fmt.Sprintf("%s://%s/omevv/GatewayService/v1", scheme, hostPort),
		endpoints: defaultEndpoints,
	}, nil
}

// resolveEndpoint normalizes a hostname that may carry a scheme and/or port
// into a scheme plus host:port pair. HTTPS on 443 is the default.
func resolveEndpoint(host string, port int) (string, string, error) {
	scheme := "https"
	rawHost := host

	if strings.Contains(rawHost, "://") {
		parsed, err := url.Parse(rawHost)
		if err != nil {
			return "", "", fmt.Errorf("parse omevv hostname %q: %w", host, err)
		}
		if parsed.Host == "" {
			return "", "", fmt.Errorf("parse omevv hostname %q: missing host", host)
		}
		switch strings.ToLower(parsed.Scheme) {
		case "https":
		case "http":
			scheme = "http"
		default:
			return "", "", fmt.Errorf("unsupported omevv scheme %q", parsed.Scheme)
		}
		rawHost = parsed.Host
	}

	hostName := rawHost
	if name, portText, err := net.SplitHostPort(rawHost); err == nil {
		hostName = name
		if port <= 0 {
			parsedPort, parseErr := strconv.Atoi(portText)
			if parseErr != nil {
				return "", "", fmt.Errorf("invalid omevv port %q: %w", portText, parseErr)
			}
			port = parsedPort
		}
	}
	if port <= 0 {
		port = 443
	}
	if port > 65535 {
		return "", "", fmt.Errorf("invalid omevv port %d", port)
	}

	return scheme, net.JoinHostPort(hostName, strconv.Itoa(port)), nil
}

func buildTLSConfig(caPath string, insecureSkipVerify bool) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if insecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
		return tlsConfig, nil
	}
	if caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle %s: %w", caPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca bundle %s contains no usable certificates", caPath)
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}

// VCenterUUID returns the vCenter scope this client operates under.
func (c *Client) VCenterUUID() string {
	return c.config.VCenterUUID
}

// Close releases idle HTTP transport connections held by the client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil || c.httpClient.Transport == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(interface{ CloseIdleConnections() }); ok {
		transport.CloseIdleConnections()
	}
}

func (c *Client) path(op operation, args ...any) string {
	template, ok := c.endpoints[op]
	if !ok {
		return ""
	}
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	request.SetBasicAuth(c.config.Username, c.config.Password)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.config.VCenterUUID != "" {
		request.Header.Set(vcenterIdentifierHeader, c.config.VCenterUUID)
	}
	return request, nil
}

// doJSON issues one request and decodes a JSON response into destination
// (which may be nil when no body is expected). Non-2xx responses become
// *APIError with the backend errorCode/message when the body carries one.
func (c *Client) doJSON(ctx context.Context, method, path string, body, destination any) (err error) {
	request, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("build omevv request %s %s: %w", method, path, err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("omevv request %s %s failed: %w", method, path, err)
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil {
			wrappedCloseErr := fmt.Errorf("close omevv response body for %s %s: %w", method, path, closeErr)
			if err != nil {
				err = errors.Join(err, wrappedCloseErr)
				return
			}
			err = wrappedCloseErr
		}
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		raw, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes))
		if readErr != nil {
			return fmt.Errorf("read omevv error response body for %s %s: %w", method, path, readErr)
		}
		apiErr := &APIError{
			StatusCode: response.StatusCode,
			Method:     method,
			Path:       path,
		}
		var backendError struct {
			Code    string `json:"errorCode"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &backendError) == nil {
			apiErr.Code = backendError.Code
			apiErr.Message = backendError.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(response.StatusCode)
		}
		return apiErr
	}

	if destination == nil {
		return nil
	}

	decoder := json.NewDecoder(io.LimitReader(response.Body, maxResponseBodyBytes))
	if err := decoder.Decode(destination); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode omevv response for %s %s: %w", method, path, err)
	}
	return nil
}

// IsConnectivityError reports whether an error indicates the gateway itself
// is unreachable (TCP, DNS, TLS failures). Application-level errors (an HTTP
// response of any status, parse errors) mean the gateway IS reachable.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// TCP/DNS connectivity failures
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "no route to host") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "dial:") {
		return true
	}

	// TLS failures
	if strings.Contains(errStr, "tls handshake") ||
		strings.Contains(errStr, "tls:") ||
		strings.Contains(errStr, "certificate") {
		return true
	}

	return false
}
