package checkout

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/fjod/sillage/internal/domain"
	"github.com/go-playground/validator/v10"
)

const (
	FieldUserName    = "userName"
	FieldUserPhone   = "userPhone"
	FieldStreet      = "street"
	FieldCity        = "city"
	FieldGovernorate = "governorate"
	FieldPostalCode  = "postalCode"
	FieldNotes       = "notes"
	FieldDeliveryAt  = "delivery_at"
)

// Governorates offered by the address form.
var Governorates = []string{
	"Cairo", "Giza", "Alexandria", "Aswan", "Asyut", "Beheira", "Beni Suef",
	"Dakahlia", "Damietta", "Faiyum", "Gharbia", "Ismailia", "Kafr El Sheikh",
	"Luxor", "Matruh", "Minya", "Monufia", "New Valley", "North Sinai",
	"Port Said", "Qalyubia", "Qena", "Red Sea", "Sharqia", "Sohag",
	"South Sinai", "Suez",
}

var egyptianMobile = regexp.MustCompile(`^01[0125][0-9]{8}$`)

// Form is the contact and shipping form. Values are kept as typed; they are
// trimmed when validated and when the payload is built.
type Form struct {
	UserName    string `json:"userName" validate:"required"`
	UserPhone   string `json:"userPhone" validate:"egmobile"`
	Street      string `json:"street" validate:"required"`
	City        string `json:"city" validate:"required"`
	Governorate string `json:"governorate" validate:"required"`
	PostalCode  string `json:"postalCode"`
	Notes       string `json:"notes"`
	DeliveryAt  string `json:"delivery_at"`
}

var fieldMessages = map[string]string{
	FieldUserName:    "Name is required",
	FieldUserPhone:   "Invalid Egyptian phone number (e.g., 01012345678)",
	FieldStreet:      "Street address is required",
	FieldCity:        "City is required",
	FieldGovernorate: "Governorate is required",
}

func (f *Form) set(name, value string) bool {
	switch name {
	case FieldUserName:
		f.UserName = value
	case FieldUserPhone:
		f.UserPhone = value
	case FieldStreet:
		f.Street = value
	case FieldCity:
		f.City = value
	case FieldGovernorate:
		f.Governorate = value
	case FieldPostalCode:
		f.PostalCode = value
	case FieldNotes:
		f.Notes = value
	case FieldDeliveryAt:
		f.DeliveryAt = value
	default:
		return false
	}
	return true
}

func (f Form) trimmed() Form {
	return Form{
		UserName:    strings.TrimSpace(f.UserName),
		UserPhone:   strings.TrimSpace(f.UserPhone),
		Street:      strings.TrimSpace(f.Street),
		City:        strings.TrimSpace(f.City),
		Governorate: strings.TrimSpace(f.Governorate),
		PostalCode:  strings.TrimSpace(f.PostalCode),
		Notes:       strings.TrimSpace(f.Notes),
		DeliveryAt:  strings.TrimSpace(f.DeliveryAt),
	}
}

// Payload builds the order request; empty optionals are left out of the JSON.
func (f Form) Payload(items []domain.LineItem) domain.OrderRequest {
	t := f.trimmed()
	return domain.OrderRequest{
		UserName:  t.UserName,
		UserPhone: t.UserPhone,
		ShippingAddress: domain.ShippingAddress{
			Street:      t.Street,
			City:        t.City,
			Governorate: t.Governorate,
			PostalCode:  t.PostalCode,
		},
		Items:      domain.OrderItemsFromCart(items),
		Notes:      t.Notes,
		DeliveryAt: t.DeliveryAt,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("egmobile", func(fl validator.FieldLevel) bool {
		return egyptianMobile.MatchString(fl.Field().String())
	})
	return v
}

// validate returns field name -> message for every failing rule.
func validate(v *validator.Validate, f Form) map[string]string {
	err := v.Struct(f.trimmed())
	if err == nil {
		return nil
	}

	errs := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		name := fe.Field()
		if msg, ok := fieldMessages[name]; ok {
			errs[name] = msg
		} else {
			errs[name] = fe.Error()
		}
	}
	return errs
}
