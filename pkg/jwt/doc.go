// Package jwt signs and verifies HS256 JSON Web Tokens on top of
// github.com/golang-jwt/jwt/v5.
//
// Service accepts any claims type implementing jwt.Claims, usually a struct
// embedding jwt.RegisteredClaims. Parse pins the algorithm to HS256, requires
// an expiry and maps library failures onto this package's sentinel errors:
//
//	svc, err := jwt.NewFromString(cfg.JWTSecret)
//	if err != nil {
//		return err
//	}
//	token, err := svc.Generate(claims)
//	...
//	var parsed MyClaims
//	if err := svc.Parse(token, &parsed); errors.Is(err, jwt.ErrExpiredToken) {
//		// ask the client to log in again
//	}
//
// Token extractors read the raw token from the Authorization header or a
// cookie; FirstOf chains them.
package jwt
