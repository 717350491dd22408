// ABOUTME: HTTP client for the remote chat backend's REST endpoints
// ABOUTME: Auth, roster, history, attachment sends and profile photo uploads

// Package api wraps the backend's REST surface. The backend owns all
// persistence; this client only performs one-shot request/response
// calls and decodes the results into domain types. Timeouts are left to
// the HTTP client's defaults.
package api
