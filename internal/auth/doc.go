// Package auth provides password-based registration and login for member
// accounts, issuing signed bearer tokens the HTTP layer verifies on every
// authenticated request.
package auth
