package service

import (
	"net/mail"
	"strings"
)

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "name is required")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "value is not a valid email address")
	}
	return nil
}
