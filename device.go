package authcore

import (
	"net/http"

	"github.com/lgcovizzi/authcore/internal"
)

// DeviceFromRequest extracts the client device context from request
// headers: first X-Forwarded-For entry, then X-Real-IP, then the socket
// remote address; the User-Agent header classifies the device.
func DeviceFromRequest(r *http.Request) DeviceContext {
	return internal.DeviceFromRequest(r)
}

// ClientIP resolves the requester address with the same precedence
// DeviceFromRequest uses.
func ClientIP(r *http.Request) string {
	return internal.ClientIP(r)
}
