package service

import (
	"errors"
	"fmt"
)

// Validation error kinds. 全部在任何写入发生前检出，保证无半更新状态。
const (
	KindTemplateNotFound      = "template_not_found"
	KindMilestoneNotInTemplate = "milestone_not_in_template"
	KindTypeMismatch          = "type_mismatch"
	KindOutOfRange            = "out_of_range"
	KindWelderRequired        = "welder_required"
	KindRepairChainTooDeep    = "repair_chain_too_deep"
	KindReferentialConflict   = "referential_conflict"
)

// ValidationError 带错误类别和出错字段的确定性校验失败
type ValidationError struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AsValidation 提取校验错误
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func errTemplateNotFound(componentType string) error {
	return &ValidationError{
		Kind:    KindTemplateNotFound,
		Field:   "component_type",
		Message: fmt.Sprintf("no progress template for component type %q", componentType),
	}
}

func errMilestoneNotInTemplate(milestone, componentType string) error {
	return &ValidationError{
		Kind:    KindMilestoneNotInTemplate,
		Field:   "milestone",
		Message: fmt.Sprintf("milestone %q is not defined in the %s template", milestone, componentType),
	}
}

func errTypeMismatch(milestone, want string) error {
	return &ValidationError{
		Kind:    KindTypeMismatch,
		Field:   "value",
		Message: fmt.Sprintf("milestone %q requires a %s value", milestone, want),
	}
}

func errOutOfRange(milestone, detail string) error {
	return &ValidationError{
		Kind:    KindOutOfRange,
		Field:   "value",
		Message: fmt.Sprintf("milestone %q value %s", milestone, detail),
	}
}

func errWelderRequired(milestone string) error {
	return &ValidationError{
		Kind:    KindWelderRequired,
		Field:   "welder_id",
		Message: fmt.Sprintf("a welder must be assigned before completing %q", milestone),
	}
}

func errRepairChainTooDeep(max int) error {
	return &ValidationError{
		Kind:    KindRepairChainTooDeep,
		Field:   "original_weld_id",
		Message: fmt.Sprintf("repair chain depth limit (%d) reached, engineering review required", max),
	}
}

func errWelderReferenced(welderID string, count int64) error {
	return &ValidationError{
		Kind:    KindReferentialConflict,
		Field:   "welder_id",
		Message: fmt.Sprintf("welder %s is referenced by %d field weld(s)", welderID, count),
	}
}

func errInvalidStencil(stencil string) error {
	return &ValidationError{
		Kind:    KindOutOfRange,
		Field:   "stencil",
		Message: fmt.Sprintf("stencil %q does not match the required pattern", stencil),
	}
}
