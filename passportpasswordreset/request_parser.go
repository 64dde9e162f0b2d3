package passportpasswordreset

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.inout.gg/passport/passportpassword"
)

var (
	_ HTTPRequestParser = (*jsonParser)(nil)
	_ HTTPRequestParser = (*formParser)(nil)
	_ HTTPRequestParser = (*contentTypeParser)(nil)
)

// HTTPRequestParser parses HTTP requests to grab password reset data.
type HTTPRequestParser interface {
	ParseUserLookupData(r *http.Request) (*UserLookupData, error)
	ParsePasswordResetData(r *http.Request) (*PasswordResetData, error)
}

// UserLookupData is the form used to look up the user requesting a reset.
type UserLookupData struct {
	Username string `json:"username" mod:"trim" validate:"required"`
}

// PasswordResetData is the form used to set a new password.
type PasswordResetData struct {
	Ticket   string `json:"ticket"   mod:"trim" validate:"required"`
	Password string `json:"password"            validate:"required"`
}

type jsonParser struct {
	config *HTTPConfig
}

func decodeJSON(r *http.Request) (map[string]string, error) {
	var m map[string]string
	passportpassword.LimitRequestBody(r)

	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("passport/passwordreset: failed to parse JSON data: %w", err)
	}

	return m, nil
}

func (p *jsonParser) ParseUserLookupData(r *http.Request) (*UserLookupData, error) {
	m, err := decodeJSON(r)
	if err != nil {
		return nil, err
	}

	return &UserLookupData{Username: m[p.config.FieldUsername]}, nil
}

func (p *jsonParser) ParsePasswordResetData(r *http.Request) (*PasswordResetData, error) {
	m, err := decodeJSON(r)
	if err != nil {
		return nil, err
	}

	return &PasswordResetData{
		Ticket:   m[p.config.FieldTicket],
		Password: m[p.config.FieldPassword],
	}, nil
}

type formParser struct {
	config *HTTPConfig
}

func (p *formParser) ParseUserLookupData(r *http.Request) (*UserLookupData, error) {
	passportpassword.LimitRequestBody(r)

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("passport/passwordreset: failed to parse form data: %w", err)
	}

	return &UserLookupData{Username: r.PostFormValue(p.config.FieldUsername)}, nil
}

func (p *formParser) ParsePasswordResetData(r *http.Request) (*PasswordResetData, error) {
	passportpassword.LimitRequestBody(r)

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("passport/passwordreset: failed to parse form data: %w", err)
	}

	return &PasswordResetData{
		Ticket:   r.PostFormValue(p.config.FieldTicket),
		Password: r.PostFormValue(p.config.FieldPassword),
	}, nil
}

type contentTypeParser struct {
	json *jsonParser
	form *formParser
}

func (p *contentTypeParser) pick(r *http.Request) HTTPRequestParser {
	if passportpassword.IsJSONRequest(r) {
		return p.json
	}

	return p.form
}

func (p *contentTypeParser) ParseUserLookupData(r *http.Request) (*UserLookupData, error) {
	return p.pick(r).ParseUserLookupData(r)
}

func (p *contentTypeParser) ParsePasswordResetData(r *http.Request) (*PasswordResetData, error) {
	return p.pick(r).ParsePasswordResetData(r)
}
