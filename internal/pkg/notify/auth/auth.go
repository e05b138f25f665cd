// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// AuthType represents the authentication type
type AuthType string

const (
	AuthTypeBearer AuthType = "bearer" // Bearer token authentication
	AuthTypeAPIKey AuthType = "apikey" // API Key authentication
	AuthTypeBasic  AuthType = "basic"  // Basic authentication
)

// IAuthProvider adds credentials to outgoing notification requests
type IAuthProvider interface {
	GetAuthType() AuthType
	// GetAuthHeader gets the authentication header key and value
	GetAuthHeader() (string, string)
	Validate() error
}

// Config selects and configures a provider
type Config struct {
	Type     AuthType `mapstructure:"type"`
	Token    string   `mapstructure:"token"`
	Header   string   `mapstructure:"header"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
}

// NewAuthProvider builds the provider named by cfg.Type; an empty type means
// no authentication and yields nil
func NewAuthProvider(cfg Config) (IAuthProvider, error) {
	var p IAuthProvider
	switch cfg.Type {
	case "":
		return nil, nil
	case AuthTypeBearer:
		p = NewBearerAuth(cfg.Token)
	case AuthTypeAPIKey:
		p = NewAPIKeyAuth(cfg.Token, cfg.Header)
	case AuthTypeBasic:
		p = NewBasicAuth(cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", cfg.Type)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// BearerAuth implements bearer token authentication
type BearerAuth struct {
	Token string
}

func NewBearerAuth(token string) *BearerAuth {
	return &BearerAuth{Token: token}
}

func (a *BearerAuth) GetAuthType() AuthType {
	return AuthTypeBearer
}

func (a *BearerAuth) GetAuthHeader() (string, string) {
	return "Authorization", "Bearer " + a.Token
}

func (a *BearerAuth) Validate() error {
	if a.Token == "" {
		return errors.New("bearer token is required")
	}
	return nil
}

// APIKeyAuth sends a key in a custom header
type APIKeyAuth struct {
	APIKey     string
	HeaderName string
}

func NewAPIKeyAuth(apiKey, headerName string) *APIKeyAuth {
	if headerName == "" {
		headerName = "X-API-Key"
	}
	return &APIKeyAuth{
		APIKey:     apiKey,
		HeaderName: headerName,
	}
}

func (a *APIKeyAuth) GetAuthType() AuthType {
	return AuthTypeAPIKey
}

func (a *APIKeyAuth) GetAuthHeader() (string, string) {
	return a.HeaderName, a.APIKey
}

func (a *APIKeyAuth) Validate() error {
	if a.APIKey == "" {
		return errors.New("API key is required")
	}
	return nil
}

// BasicAuth implements basic authentication
type BasicAuth struct {
	Username string
	Password string
}

func NewBasicAuth(username, password string) *BasicAuth {
	return &BasicAuth{
		Username: username,
		Password: password,
	}
}

func (a *BasicAuth) GetAuthType() AuthType {
	return AuthTypeBasic
}

func (a *BasicAuth) GetAuthHeader() (string, string) {
	return "Authorization", "Basic " + a.encodeBasicAuth()
}

func (a *BasicAuth) Validate() error {
	if a.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

// encodeBasicAuth encodes basic auth credentials to base64
func (a *BasicAuth) encodeBasicAuth() string {
	credentials := a.Username + ":" + a.Password
	return base64.StdEncoding.EncodeToString([]byte(credentials))
}
