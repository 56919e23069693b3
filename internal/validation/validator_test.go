package validation

import (
	"errors"
	"testing"
)

type signup struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Start           string `json:"start_time" validate:"required,clock"`
}

func TestStruct(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	valid := signup{Email: "a@b.io", Password: "abc_123", ConfirmPassword: "abc_123", Start: "09:30"}

	tests := []struct {
		name      string
		mutate    func(*signup)
		wantField string
	}{
		{"valid", func(*signup) {}, ""},
		{"bad email", func(s *signup) { s.Email = "nope" }, "email"},
		{"password charset", func(s *signup) { s.Password, s.ConfirmPassword = "pa ss", "pa ss" }, "password"},
		{"password mismatch", func(s *signup) { s.ConfirmPassword = "other" }, "confirmPassword"},
		{"clock out of range", func(s *signup) { s.Start = "25:00" }, "start_time"},
		{"clock with seconds", func(s *signup) { s.Start = "09:30:00" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			err := v.Struct(in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q (%v)", verrs[0].Field, tt.wantField, verrs)
			}
		})
	}
}
