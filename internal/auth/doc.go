// ABOUTME: Bearer credential storage and identity claim extraction
// ABOUTME: The client stores the token; how it was issued is the backend's business

// Package auth handles the stored bearer credential: a token file under
// the user's config directory, plus claim extraction so the client
// knows which user it is acting as and when the credential expires.
//
// The token is never verified here — the client does not hold the
// signing secret. Verification is the backend's job on every request.
package auth
