// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package auth

import "context"

// RegistrationInput carries the fields of a registration submission.
type RegistrationInput struct {
	Username         string
	Email            string
	Password         string
	ConfirmPassword  string
	RecruitmentCycle string
	AcceptTerms      bool
}

// FieldError describes a single invalid registration field in a form the
// caller can render directly.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validate checks every field and reports all violations together, so the
// caller can render the complete set of errors at once.
func (in RegistrationInput) Validate() []FieldError {
	var errs []FieldError

	if err := ValidateUsername(in.Username); err != nil {
		errs = append(errs, FieldError{Field: "username", Reason: err.Error()})
	} else if IsReservedUsername(in.Username) {
		errs = append(errs, FieldError{Field: "username", Reason: "this username is reserved"})
	}
	if err := ValidateEmail(in.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Reason: err.Error()})
	}
	if err := ValidatePassword(in.Password); err != nil {
		errs = append(errs, FieldError{Field: "password", Reason: err.Error()})
	}
	if in.Password != in.ConfirmPassword {
		errs = append(errs, FieldError{Field: "confirm_password", Reason: "passwords do not match"})
	}
	if in.RecruitmentCycle == "" {
		errs = append(errs, FieldError{Field: "recruitment_cycle", Reason: "recruitment cycle is required"})
	}
	if !in.AcceptTerms {
		errs = append(errs, FieldError{Field: "accept_terms", Reason: "terms of service must be accepted"})
	}

	return errs
}

// Transactor runs a function inside a single storage transaction. If the
// function returns an error the transaction is rolled back; otherwise it is
// committed.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
