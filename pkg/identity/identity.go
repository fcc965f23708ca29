/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: identity.go
Description: Read-only identity claims supplied by the auth provider. No authorization
decisions are made here.
*/

package identity

import (
	"context"
	"errors"
	"os"
)

// UnknownName is shown when the identity carries no usable name
const UnknownName = "Unknown"

// ErrNoIdentity is returned when no user is signed in
var ErrNoIdentity = errors.New("no identity available")

// Identity holds the claims the editor reads
type Identity struct {
	UserID      string `json:"userId" mapstructure:"user_id"`
	DisplayName string `json:"displayName" mapstructure:"display_name"`
	Email       string `json:"email,omitempty" mapstructure:"email"`
	CompanyID   string `json:"companyId" mapstructure:"company_id"`
	Role        string `json:"role" mapstructure:"role"`
}

// Name returns the best available human name
func (i Identity) Name() string {
	switch {
	case i.DisplayName != "":
		return i.DisplayName
	case i.Email != "":
		return i.Email
	default:
		return UnknownName
	}
}

// Provider supplies the current identity
type Provider interface {
	Current(ctx context.Context) (Identity, error)
}

// Static always returns the same identity
type Static Identity

// Current returns the static identity, or ErrNoIdentity when it has no user id
func (s Static) Current(ctx context.Context) (Identity, error) {
	if s.UserID == "" {
		return Identity{}, ErrNoIdentity
	}
	return Identity(s), nil
}

// FromEnv reads TABLEMEND_USER_* variables, for command line use
func FromEnv() Static {
	return Static{
		UserID:      os.Getenv("TABLEMEND_USER_ID"),
		DisplayName: os.Getenv("TABLEMEND_USER_NAME"),
		Email:       os.Getenv("TABLEMEND_USER_EMAIL"),
		CompanyID:   os.Getenv("TABLEMEND_COMPANY_ID"),
		Role:        os.Getenv("TABLEMEND_USER_ROLE"),
	}
}
