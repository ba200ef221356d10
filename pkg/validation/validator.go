// Package validation registers the service's custom binding rules
// with gin's validator engine. Register must run once before the
// router serves requests.
package validation

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)
	// Positive decimal, up to 8 fraction digits. Sign and exponent
	// forms are rejected before the decimal parser ever sees them.
	amountPattern = regexp.MustCompile(`^\d+(\.\d{1,8})?$`)
)

var documentTypes = map[string]bool{
	"passport":        true,
	"drivers_license": true,
	"national_id":     true,
}

// Register installs the custom rules on gin's binding validator
func Register() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("currency_code", validateCurrencyCode)
	_ = v.RegisterValidation("amount_string", validateAmountString)
	_ = v.RegisterValidation("document_type", validateDocumentType)
}

func validateCurrencyCode(fl validator.FieldLevel) bool {
	return currencyCodePattern.MatchString(fl.Field().String())
}

func validateAmountString(fl validator.FieldLevel) bool {
	return amountPattern.MatchString(fl.Field().String())
}

func validateDocumentType(fl validator.FieldLevel) bool {
	return documentTypes[fl.Field().String()]
}
