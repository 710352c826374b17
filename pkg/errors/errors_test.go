package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestCategoryHelpers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"validation", Validation("name", "must not be empty"), IsValidation},
		{"not found", NotFound("abc"), IsNotFound},
		{"immutable", Immutable("classic"), IsImmutable},
		{"template limit", TemplateLimit(20), IsCapacity},
		{"quota", QuotaExceeded(stderrors.New("disk full")), IsCapacity},
		{"asset", AssetLoad("frame.png", stderrors.New("boom")), IsAsset},
		{"device", Device(ErrCodeDeviceBusy, "close other apps", nil), IsDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.pred(tt.err) {
				t.Errorf("predicate false for %v", tt.err)
			}
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !tt.pred(wrapped) {
				t.Errorf("predicate false for wrapped %v", wrapped)
			}
		})
	}
}

func TestCapacityCodesAreDistinct(t *testing.T) {
	limit := TemplateLimit(20)
	quota := QuotaExceeded(nil)
	if limit.Code == quota.Code {
		t.Error("template limit and quota errors should carry different codes")
	}
	if IsValidation(limit) || IsValidation(quota) {
		t.Error("capacity errors must not be validation errors")
	}
}

func TestValidationNamesField(t *testing.T) {
	err := Validation("photoSlots[1]", "width %d below minimum %d", 10, 50)
	if !strings.Contains(err.Error(), "photoSlots[1]") {
		t.Errorf("error %q does not name the field", err.Error())
	}
	if err.Field != "photoSlots[1]" {
		t.Errorf("Field = %q", err.Field)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("quota")
	err := QuotaExceeded(cause)
	if !stderrors.Is(err, cause) {
		t.Error("QuotaExceeded should unwrap to its cause")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("ctx: %w", ValidationCode(ErrCodeTooLarge, "file", "too big"))
	if !HasCode(err, ErrCodeTooLarge) {
		t.Error("HasCode should find TOO_LARGE")
	}
	if HasCode(stderrors.New("plain"), ErrCodeTooLarge) {
		t.Error("plain errors carry no code")
	}
}
