// Package passportcsrf provides an HTTP middleware helping to prevent CSRF
// attacks by employing the Double Submit Cookie pattern.
//
// Check out https://cheatsheetseries.owasp.org/cheatsheets/Cross-Site_Request_Forgery_Prevention_Cheat_Sheet.html
// for more information.
package passportcsrf
