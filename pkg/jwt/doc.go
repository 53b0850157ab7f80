// Package jwt implements compact JWT signing and verification with
// HMAC-SHA256, without external dependencies. It covers exactly what a
// bearer-token API needs: Generate for issuance at login, Parse for
// verification in middleware, and StandardClaims with expiry validation.
package jwt
