// Package guard enforces the tenant boundary for authenticated requests.
//
// Guard.Authorize verifies a signed credential, loads the principal it
// names and compares the stored tenant affiliation with the tenant resolved
// for the request. The result is a Decision, either Allowed (with the tenant
// scope for row-level filtering) or Rejected (401 or 403 with a reason).
// Storage failures are errors, never rejections.
//
//	g := guard.New(jwtService, principals, guard.WithLastLoginRecorder(principals))
//	r.With(guard.Middleware(g)).Get("/api/me", me)
//
// The check runs on every request; nothing about the decision is cached.
package guard
