package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"storefront-service/apperrors"
	"storefront-service/models"

	"github.com/go-playground/validator/v10"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ProductValidator checks product and review payloads and reports every
// failing field at once, named by its JSON path (e.g. "colors[1].quantity").
type ProductValidator struct {
	validate *validator.Validate
}

func NewProductValidator() *ProductValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// only fails on a static pattern, cannot error at runtime
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return &ProductValidator{validate: v}
}

func (pv *ProductValidator) ValidateProduct(p *models.Product) error {
	return pv.check(p)
}

func (pv *ProductValidator) ValidateReview(r *models.Review) error {
	return pv.check(r)
}

func (pv *ProductValidator) check(v any) error {
	err := pv.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.New(apperrors.KindInternal, "Validation could not run", err)
	}

	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		fields = append(fields, apperrors.FieldError{
			Field:   path,
			Rule:    fe.Tag(),
			Message: fieldMessage(path, fe),
		})
	}
	return apperrors.Validation(fields)
}

func fieldMessage(path string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", path, fe.Param())
	case "slug":
		return fmt.Sprintf("%s may only contain lowercase letters, digits and single hyphens", path)
	}
	return fmt.Sprintf("%s failed the %s rule", path, fe.Tag())
}
