// Package httpapi serves the chatgate JSON API over net/http.
//
// Routes:
//
//	POST /api/register            {email, password}        201 {message}
//	POST /api/login               {email, password}        200 {message}
//	POST /api/verify-mfa          {email, mfa_code}        200 {message, session_token, csrf_token}
//	POST /api/chat                {message}                200 {response}
//	POST /api/logout                                       200 {message}
//	POST /api/logout-all                                   200 {message, sessions}
//	POST /api/change-password     {current_password, new_password}
//	GET  /api/verify-email?token=                          200 {message}
//	POST /api/resend-verification {email}                  200 {message}
//	GET  /healthz
//	GET  /metrics
//
// Failures are {"error": "..."} with a fixed message per error class.
package httpapi
