// Package httputil provides HTTP utilities for standardized request/response handling.
//
// Responses always carry a JSON body of the form {"error": "..."} on failure:
//
//	httputil.WriteUnauthorized(w, "Invalid token")
//	httputil.WriteFieldError(w, "expirationDate", "invalid date")
//	httputil.WriteCreated(w, item)
//
// Middleware is composed with Chain:
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//		httputil.TimeoutMiddleware(30*time.Second),
//	)(router)
package httputil
