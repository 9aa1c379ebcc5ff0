package middleware

import (
	"context"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"
)

// RequestIDHeader is read from incoming requests and echoed on every response.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen caps client-supplied IDs so they cannot bloat our logs.
const maxRequestIDLen = 64

// RequestID tags each request with an ID.
//
// An ID sent by the caller (e.g. a gateway) is kept; otherwise a new xid is
// generated. xids are 20 chars, sortable by creation time and need no
// coordination between instances.
//
// The ID is stored under chi's RequestIDKey, so chimiddleware.GetReqID works
// anywhere downstream, including in Logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = xid.New().String()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), chimiddleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
