package internal

import (
	"net"
	"net/http"
	"strings"
)

const (
	unknownDevice = "Unknown"
	unknownIP     = "Unknown"
	unknownAgent  = "Unknown"
)

// Device is the best-effort request context recorded alongside a refresh
// credential. Informational only, never security-relevant: absent headers
// default to "Unknown".
type Device struct {
	Info      string
	IP        string
	UserAgent string
}

// DeviceFromRequest extracts device context from request headers. A nil
// request yields the all-Unknown device.
func DeviceFromRequest(r *http.Request) Device {
	if r == nil {
		return Device{Info: unknownDevice, IP: unknownIP, UserAgent: unknownAgent}
	}

	ua := r.Header.Get("User-Agent")
	return Device{
		Info:      ClassifyUserAgent(ua),
		IP:        ClientIP(r),
		UserAgent: normalizeAgent(ua),
	}
}

// ClientIP resolves the requester address with the proxy-aware precedence:
// first X-Forwarded-For entry, then X-Real-IP, then the socket remote address.
func ClientIP(r *http.Request) string {
	if r == nil {
		return unknownIP
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}

	if r.RemoteAddr == "" {
		return unknownIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ClassifyUserAgent maps a User-Agent header to a coarse device class.
func ClassifyUserAgent(ua string) string {
	if ua == "" {
		return unknownDevice
	}

	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "mobile"):
		return "Mobile"
	case strings.Contains(lower, "tablet"):
		return "Tablet"
	case strings.Contains(lower, "postman"):
		return "Postman"
	case strings.Contains(lower, "curl"):
		return "cURL"
	default:
		return "Desktop"
	}
}

func normalizeAgent(ua string) string {
	if ua == "" {
		return unknownAgent
	}
	return ua
}
