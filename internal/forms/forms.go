// Package forms validates portal form input before it reaches the network.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/platform"
)

// Dealer categories accepted by the backend
const (
	CategoryWakanet    = "wakanet"
	CategoryEnterprise = "enterprise"
	CategoryBoth       = "both"
)

// SignInForm holds sign-in credentials
type SignInForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// DealerForm is the create/edit dealer form
type DealerForm struct {
	Name          string `json:"dealerName" validate:"required,min=2,max=100"`
	ContactPerson string `json:"contactPerson" validate:"required,min=2"`
	Phone         string `json:"phone" validate:"required,msisdn"`
	Email         string `json:"email" validate:"required,email"`
	Region        string `json:"region" validate:"required"`
	Category      string `json:"category" validate:"required,oneof=wakanet enterprise both"`
}

// AgentForm is the register agent form
type AgentForm struct {
	Name     string `json:"name" validate:"required,min=2"`
	Phone    string `json:"phone" validate:"required,msisdn"`
	Email    string `json:"email" validate:"omitempty,email"`
	NIN      string `json:"nin" validate:"omitempty,nin"`
	DealerID string `json:"dealerId" validate:"required"`
	ShopID   string `json:"shopId"`
}

// ShopForm is the create/edit shop form
type ShopForm struct {
	Name     string `json:"shopName" validate:"required,min=2"`
	DealerID string `json:"dealerId" validate:"required"`
	Location string `json:"location" validate:"required"`
	Region   string `json:"region" validate:"required"`
}

// BundleActivationForm activates a bundle on a subscriber line
type BundleActivationForm struct {
	MSISDN     string `json:"msisdn" validate:"required,msisdn"`
	BundleCode string `json:"bundleCode" validate:"required,alphanum"`
	AgentID    string `json:"agentId"`
}

// IMEIForm is a single device entry
type IMEIForm struct {
	IMEI string `json:"imei" validate:"required,imei"`
}

// FieldErrors maps a form field to the first rule it broke
type FieldErrors map[string]string

// Error lists the failing fields in a stable order
func (fe FieldErrors) Error() string {
	fields := fe.Fields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s %s", f, fe[f]))
	}
	return strings.Join(parts, "; ")
}

// Fields returns the failing field names, sorted
func (fe FieldErrors) Fields() []string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Unwrap exposes the coded validation error so errors.Is(err,
// perrors.ErrValidation) matches
func (fe FieldErrors) Unwrap() error {
	return perrors.NewValidationError(fe.Error())
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
	countryCode  = DefaultCountryCode
	countryMu    sync.RWMutex
)

// SetCountryCode changes the country code used by the msisdn rule and the
// Input conversions
func SetCountryCode(cc string) {
	if cc == "" {
		return
	}
	countryMu.Lock()
	countryCode = cc
	countryMu.Unlock()
}

// CountryCode returns the country code in use
func CountryCode() string {
	countryMu.RLock()
	defer countryMu.RUnlock()
	return countryCode
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
			return ValidPhone(fl.Field().String(), CountryCode())
		})
		_ = v.RegisterValidation("imei", func(fl validator.FieldLevel) bool {
			return ValidIMEI(fl.Field().String())
		})
		_ = v.RegisterValidation("nin", func(fl validator.FieldLevel) bool {
			return ValidNIN(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks a form struct. It returns FieldErrors when any rule fails.
func Validate(form interface{}) error {
	err := validatorInstance().Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return perrors.Wrap(perrors.ErrCodeValidationFailed, "invalid form", err)
	}

	fe := make(FieldErrors, len(verrs))
	for _, v := range verrs {
		if _, seen := fe[v.Field()]; !seen {
			fe[v.Field()] = message(v)
		}
	}
	return fe
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "alphanum":
		return "must contain only letters and digits"
	case "msisdn":
		return "must be a valid phone number"
	case "imei":
		return "must be a 15-digit IMEI"
	case "nin":
		return "must be a valid national ID number"
	default:
		return fmt.Sprintf("failed the %s rule", fe.Tag())
	}
}

// ValidNIN reports whether s looks like a Ugandan national ID number:
// 14 characters, two letters then twelve letters or digits
func ValidNIN(s string) bool {
	if len(s) != 14 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isLetter := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
		isDigit := c >= '0' && c <= '9'
		if i < 2 && !isLetter {
			return false
		}
		if !isLetter && !isDigit {
			return false
		}
	}
	return true
}

// Input validates the form and returns the request body with the phone
// number normalized
func (f DealerForm) Input() (platform.DealerInput, error) {
	if err := Validate(f); err != nil {
		return platform.DealerInput{}, err
	}
	phone, err := NormalizePhone(f.Phone, CountryCode())
	if err != nil {
		return platform.DealerInput{}, err
	}
	return platform.DealerInput{
		Name:          strings.TrimSpace(f.Name),
		ContactPerson: strings.TrimSpace(f.ContactPerson),
		Phone:         phone,
		Email:         strings.ToLower(strings.TrimSpace(f.Email)),
		Region:        strings.TrimSpace(f.Region),
		Category:      f.Category,
	}, nil
}

// Input validates the form and returns the request body
func (f AgentForm) Input() (platform.AgentInput, error) {
	if err := Validate(f); err != nil {
		return platform.AgentInput{}, err
	}
	phone, err := NormalizePhone(f.Phone, CountryCode())
	if err != nil {
		return platform.AgentInput{}, err
	}
	return platform.AgentInput{
		Name:     strings.TrimSpace(f.Name),
		Phone:    phone,
		Email:    strings.ToLower(strings.TrimSpace(f.Email)),
		NIN:      strings.ToUpper(f.NIN),
		DealerID: f.DealerID,
		ShopID:   f.ShopID,
	}, nil
}

// Input validates the form and returns the request body
func (f ShopForm) Input() (platform.ShopInput, error) {
	if err := Validate(f); err != nil {
		return platform.ShopInput{}, err
	}
	return platform.ShopInput{
		Name:     strings.TrimSpace(f.Name),
		DealerID: f.DealerID,
		Location: strings.TrimSpace(f.Location),
		Region:   strings.TrimSpace(f.Region),
	}, nil
}

// Input validates the form and returns the request body
func (f BundleActivationForm) Input() (platform.ActivationInput, error) {
	if err := Validate(f); err != nil {
		return platform.ActivationInput{}, err
	}
	msisdn, err := NormalizePhone(f.MSISDN, CountryCode())
	if err != nil {
		return platform.ActivationInput{}, err
	}
	return platform.ActivationInput{
		MSISDN:     msisdn,
		BundleCode: strings.ToUpper(f.BundleCode),
		AgentID:    f.AgentID,
	}, nil
}
