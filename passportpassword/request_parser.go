package passportpassword

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

var (
	_ HTTPRequestParser = (*formParser)(nil)
	_ HTTPRequestParser = (*jsonParser)(nil)
	_ HTTPRequestParser = (*contentTypeParser)(nil)
)

// HTTPRequestParser parses HTTP requests to grab user registration and login data.
type HTTPRequestParser interface {
	ParseUserRegistrationData(r *http.Request) (*UserRegistrationData, error)
	ParseUserLoginData(r *http.Request) (*UserLoginData, error)
}

// UserRegistrationData is the form for user registration.
type UserRegistrationData struct {
	Username string `json:"username" mod:"trim" validate:"required,max=32,username"`
	Email    string `json:"email"    mod:"trim" validate:"required,email,max=254"    scrub:"emails"`
	Password string `json:"password"            validate:"required"`
}

// UserLoginData is the form for user login.
type UserLoginData struct {
	Username string `json:"username" mod:"trim" validate:"required"`
	Password string `json:"password"            validate:"required"`
}

// MaxRequestBodySize caps the size of a form or JSON request body.
const MaxRequestBodySize = 4 << 10

type jsonParser struct {
	config *HTTPConfig
}

func decodeJSON(r *http.Request) (map[string]string, error) {
	var m map[string]string
	LimitRequestBody(r)

	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("passport/password: failed to parse JSON data: %w", err)
	}

	return m, nil
}

func (p *jsonParser) ParseUserRegistrationData(r *http.Request) (*UserRegistrationData, error) {
	m, err := decodeJSON(r)
	if err != nil {
		return nil, err
	}

	return &UserRegistrationData{
		Username: m[p.config.FieldUsername],
		Email:    m[p.config.FieldEmail],
		Password: m[p.config.FieldPassword],
	}, nil
}

func (p *jsonParser) ParseUserLoginData(r *http.Request) (*UserLoginData, error) {
	m, err := decodeJSON(r)
	if err != nil {
		return nil, err
	}

	return &UserLoginData{
		Username: m[p.config.FieldUsername],
		Password: m[p.config.FieldPassword],
	}, nil
}

type formParser struct {
	config *HTTPConfig
}

func (p *formParser) ParseUserRegistrationData(r *http.Request) (*UserRegistrationData, error) {
	LimitRequestBody(r)

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("passport/password: failed to parse form data: %w", err)
	}

	return &UserRegistrationData{
		Username: r.PostFormValue(p.config.FieldUsername),
		Email:    r.PostFormValue(p.config.FieldEmail),
		Password: r.PostFormValue(p.config.FieldPassword),
	}, nil
}

func (p *formParser) ParseUserLoginData(r *http.Request) (*UserLoginData, error) {
	LimitRequestBody(r)

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("passport/password: failed to parse form data: %w", err)
	}

	return &UserLoginData{
		Username: r.PostFormValue(p.config.FieldUsername),
		Password: r.PostFormValue(p.config.FieldPassword),
	}, nil
}

// contentTypeParser dispatches to the JSON parser for "application/json"
// requests and to the form parser otherwise.
type contentTypeParser struct {
	json *jsonParser
	form *formParser
}

func (p *contentTypeParser) pick(r *http.Request) HTTPRequestParser {
	if IsJSONRequest(r) {
		return p.json
	}

	return p.form
}

func (p *contentTypeParser) ParseUserRegistrationData(r *http.Request) (*UserRegistrationData, error) {
	return p.pick(r).ParseUserRegistrationData(r)
}

func (p *contentTypeParser) ParseUserLoginData(r *http.Request) (*UserLoginData, error) {
	return p.pick(r).ParseUserLoginData(r)
}

// IsJSONRequest reports whether r carries a JSON body.
func IsJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// LimitRequestBody caps r.Body at MaxRequestBodySize. Reads past the limit
// fail with *http.MaxBytesError.
func LimitRequestBody(r *http.Request) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)
}
