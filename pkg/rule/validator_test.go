package rule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/filehost/pkg/rule"
)

// uploadForm 用于测试 ValidateStruct.
type uploadForm struct {
	Name   string `rule:"required"`
	Expiry string `rule:"omitempty,oneof=1m 1h 1d 1w 1y forever"`
	Size   int64  `rule:"gte=0"`
}

func TestEngine(t *testing.T) {
	if rule.Engine() == nil {
		t.Fatal("Engine() returned nil")
	}
}

func TestValidateStruct(t *testing.T) {
	cases := []struct {
		name    string
		form    uploadForm
		wantErr bool
	}{
		{"valid", uploadForm{Name: "a.txt", Expiry: "1h", Size: 10}, false},
		{"empty expiry", uploadForm{Name: "a.txt"}, false},
		{"missing name", uploadForm{Expiry: "1d"}, true},
		{"unknown expiry", uploadForm{Name: "a.txt", Expiry: "zzz"}, true},
		{"negative size", uploadForm{Name: "a.txt", Size: -1}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := rule.ValidateStruct(tc.form)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateStruct(%+v) err = %v, wantErr %v", tc.form, err, tc.wantErr)
			}
		})
	}
}

func TestValidateVar(t *testing.T) {
	if err := rule.ValidateVar("http://localhost:8110", "required,url"); err != nil {
		t.Errorf("expected valid url, got %v", err)
	}

	if err := rule.ValidateVar("not a url", "required,url"); err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestRegisterValidation(t *testing.T) {
	err := rule.RegisterValidation("no_slash", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}

		for _, r := range s {
			if r == '/' || r == '\\' {
				return false
			}
		}

		return true
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	if err := rule.ValidateVar("abcDEF123456", "no_slash"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := rule.ValidateVar("../etc/passwd", "no_slash"); err == nil {
		t.Error("expected error for path-like value")
	}
}

func TestRegisterAlias(t *testing.T) {
	rule.RegisterAlias("short_token", "required,len=12,alphanum")

	if err := rule.ValidateVar("abcDEF123456", "short_token"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := rule.ValidateVar("abc", "short_token"); err == nil {
		t.Error("expected error for short token")
	}
}

func TestErrors(t *testing.T) {
	errs := rule.Errors(rule.ValidateStruct(uploadForm{Expiry: "zzz"}))
	if len(errs) != 2 {
		t.Fatalf("expected 2 field errors, got %v", errs)
	}

	if got := errs["uploadForm.Expiry"]; got != "oneof=1m 1h 1d 1w 1y forever" {
		t.Errorf("unexpected expiry error %q", got)
	}

	if got := errs["uploadForm.Name"]; got != "required" {
		t.Errorf("unexpected name error %q", got)
	}

	if rule.Errors(nil) != nil {
		t.Error("expected nil for nil error")
	}
}
