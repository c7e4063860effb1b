package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("method", func(fl validator.FieldLevel) bool {
			return PaymentMethod(fl.Field().String()).Valid()
		})
		_ = validate.RegisterValidation("staffcode", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return utf8.RuneCountInString(s) == 4 && allDigits(s)
		})
	})
	return validate
}

// ValidateStruct runs the `validate` tags of v and folds failures into ErrInvalidInput.
func ValidateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
}

// CartLine is one product line of a point-of-sale cart.
type CartLine struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type NewClient struct {
	FullName       string `json:"full_name" validate:"required,max=200"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone" validate:"omitempty,max=40"`
	EnrollmentDate Date   `json:"enrollment_date"`
	MonthlyFee     Money  `json:"monthly_fee"`
	PhotoURL       string `json:"photo_url" validate:"omitempty,url"`
}

func (n NewClient) Validate() error {
	if err := ValidateStruct(n); err != nil {
		return err
	}
	if err := n.EnrollmentDate.Validate(); err != nil {
		return err
	}
	if n.MonthlyFee.Cents < 0 {
		return fmt.Errorf("%w: monthly fee cannot be negative", ErrInvalidInput)
	}
	return nil
}

type NewPayment struct {
	ClientID      string        `json:"client_id" validate:"required"`
	Amount        Money         `json:"amount"`
	PaymentDate   Date          `json:"payment_date"`
	MonthsCovered []PeriodKey   `json:"months_covered"`
	Method        PaymentMethod `json:"method" validate:"required,method"`
}

func (n NewPayment) Validate() error {
	p := Payment{
		ClientID:      n.ClientID,
		Amount:        n.Amount,
		PaymentDate:   n.PaymentDate,
		MonthsCovered: n.MonthsCovered,
		Method:        n.Method,
	}
	return p.Validate()
}

type NewStaff struct {
	Name      string `json:"name" validate:"required,max=200"`
	Role      string `json:"role" validate:"required,max=80"`
	StaffCode string `json:"staff_code" validate:"omitempty,staffcode"`
	Schedule  string `json:"schedule" validate:"max=200"`
	Salary    Money  `json:"salary"`
}

func (n NewStaff) Validate() error {
	if err := ValidateStruct(n); err != nil {
		return err
	}
	if n.Salary.Cents < 0 {
		return fmt.Errorf("%w: salary cannot be negative", ErrInvalidInput)
	}
	return nil
}

type NewProduct struct {
	Name          string `json:"name" validate:"required,max=200"`
	Category      string `json:"category" validate:"max=80"`
	Price         Money  `json:"price"`
	StockQuantity int    `json:"stock_quantity" validate:"gte=0"`
	MinStockLevel int    `json:"min_stock_level" validate:"gte=0"`
}

func (n NewProduct) Validate() error {
	if err := ValidateStruct(n); err != nil {
		return err
	}
	if n.Price.Cents < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	return nil
}
