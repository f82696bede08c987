package api

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/dmitrymomot/trainkit/pkg/tenant"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) validate() error {
	v := ValidationError{}
	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		v.add("email", "must be a valid e-mail address")
	}
	if req.Password == "" {
		v.add("password", "is required")
	}
	return v.orNil()
}

// adminLogin signs in platform admins at the main domain and tenant admins
// at their tenant's host.
func (s *Server) adminLogin(r *http.Request, req loginRequest) Response {
	if err := req.validate(); err != nil {
		return Error(err, s.log)
	}
	resolved, _ := tenant.FromContext(r.Context())
	session, err := s.deps.Auth.LoginAdmin(r.Context(), req.Email, req.Password, resolved)
	if err != nil {
		return Error(err, s.log)
	}
	return JSON(session)
}

// studentLogin signs in a student of the tenant resolved from the host.
func (s *Server) studentLogin(r *http.Request, req loginRequest) Response {
	if err := req.validate(); err != nil {
		return Error(err, s.log)
	}
	resolved, _ := tenant.FromContext(r.Context())
	session, err := s.deps.Auth.LoginStudent(r.Context(), req.Email, req.Password, resolved)
	if err != nil {
		return Error(err, s.log)
	}
	return JSON(session)
}
