package middleware

import (
	"net"
	"strings"

	"github.com/Suhaibinator/SDispatch/pkg/common"
)

// IPSourceType defines the source for client IP addresses
type IPSourceType string

const (
	// IPSourceRemoteAddr uses the request's RemoteAddr field
	IPSourceRemoteAddr IPSourceType = "remote_addr"

	// IPSourceXForwardedFor uses the X-Forwarded-For header
	IPSourceXForwardedFor IPSourceType = "x_forwarded_for"

	// IPSourceXRealIP uses the X-Real-IP header
	IPSourceXRealIP IPSourceType = "x_real_ip"

	// IPSourceCustomHeader uses a custom header specified in the configuration
	IPSourceCustomHeader IPSourceType = "custom_header"
)

// IPConfig defines configuration for IP extraction
type IPConfig struct {
	// Source specifies where to extract the client IP from
	Source IPSourceType `mapstructure:"source" validate:"omitempty,oneof=remote_addr x_forwarded_for x_real_ip custom_header"`

	// CustomHeader is the name of the custom header to use when Source is IPSourceCustomHeader
	CustomHeader string `mapstructure:"custom_header" validate:"required_if=Source custom_header"`

	// TrustProxy determines whether to trust proxy headers like X-Forwarded-For
	// If false, RemoteAddr will be used as a fallback for all sources
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// DefaultIPConfig returns the default IP configuration
func DefaultIPConfig() *IPConfig {
	return &IPConfig{
		Source:     IPSourceXForwardedFor,
		TrustProxy: true,
	}
}

// contextKey is a type for context keys
type contextKey string

// ClientIPKey is the key used to store the client IP in the request context
const ClientIPKey contextKey = "client_ip"

// ClientIPFrom extracts the client IP from the request context.
// Returns an empty string if the ClientIP middleware did not run.
func ClientIPFrom(req *common.Request) string {
	if ip, ok := req.Context().Value(ClientIPKey).(string); ok {
		return ip
	}
	return ""
}

// ClientIP is a middleware that extracts the client IP from the request
// and adds it to the request context
type ClientIP struct {
	common.Base
	config *IPConfig
}

// NewClientIP creates a ClientIP middleware. A nil config uses DefaultIPConfig.
func NewClientIP(config *IPConfig) *ClientIP {
	if config == nil {
		config = DefaultIPConfig()
	}
	return &ClientIP{config: config}
}

// Before stores the client IP in the request context.
func (m *ClientIP) Before(req *common.Request) (*common.Request, error) {
	return req.WithValue(ClientIPKey, extractClientIP(req, m.config)), nil
}

// extractClientIP extracts the client IP from the request based on the configuration
func extractClientIP(r *common.Request, config *IPConfig) string {
	var ip string

	switch config.Source {
	case IPSourceXForwardedFor:
		ip = extractIPFromXForwardedFor(r)
	case IPSourceXRealIP:
		ip = r.HeaderValue("X-Real-IP")
	case IPSourceCustomHeader:
		ip = r.HeaderValue(config.CustomHeader)
	case IPSourceRemoteAddr:
		ip = r.RemoteAddr()
	default:
		ip = extractIPFromXForwardedFor(r)
	}

	// If we don't trust proxy headers or couldn't extract an IP, fall back to RemoteAddr
	if !config.TrustProxy || ip == "" {
		ip = r.RemoteAddr()
	}

	// Clean up the IP address (remove port if present)
	return cleanIP(ip)
}

// extractIPFromXForwardedFor extracts the client IP from the X-Forwarded-For header
// The X-Forwarded-For header contains a comma-separated list of IPs, with the leftmost being the original client
func extractIPFromXForwardedFor(r *common.Request) string {
	xff := r.HeaderValue("X-Forwarded-For")
	if xff == "" {
		return ""
	}

	// The leftmost IP is the original client
	ips := strings.Split(xff, ",")
	if len(ips) > 0 {
		return strings.TrimSpace(ips[0])
	}

	return ""
}

// cleanIP removes the port from an address if present
func cleanIP(ip string) string {
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return strings.Trim(ip, "[]")
}
