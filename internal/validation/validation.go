// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/cashdesk/internal/model"
)

// DateLayout задаёт формат дат в фильтрах истории.
const DateLayout = "2006-01-02"

const (
	maxInvoiceLength = 255
	amountScale      = 2
)

// maxAmount ограничивает суммы в песо так, чтобы их значение в сентаво помещалось в BIGINT.
var maxAmount = decimal.New(1, 12)

var validate = newValidator()

// Error описывает ошибку валидации с перечнем некорректных полей.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// FieldError создаёт ошибку валидации для одного поля.
func FieldError(field, reason string) *Error {
	return &Error{Fields: map[string]string{field: reason}}
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// Struct проверяет структуру по тегам validate и возвращает *Error при нарушениях.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	res := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		res.Fields[fe.Field()] = reason
	}
	return res
}

// IsValidInvoiceNumber проверяет, что номер планиллы не пуст и не длиннее 255 символов.
// Формат номера не ограничивается: планиллы заводятся вне сервиса.
func IsValidInvoiceNumber(number string) bool {
	return validate.Var(number, fmt.Sprintf("required,max=%d", maxInvoiceLength)) == nil
}

// checkAmount отмечает суммы с точностью меньше сентаво и суммы больше maxAmount по модулю.
func checkAmount(fields map[string]string, name string, d decimal.Decimal) {
	switch {
	case !d.Equal(d.Truncate(amountScale)):
		fields[name] = fmt.Sprintf("scale=%d", amountScale)
	case d.Abs().GreaterThan(maxAmount):
		fields[name] = "lte=" + maxAmount.String()
	}
}

// CountSubmission проверяет поля пересчёта и совпадение итога с разбивкой по номиналам.
func CountSubmission(sub model.CountSubmission) error {
	if err := Struct(sub); err != nil {
		return err
	}

	fields := make(map[string]string)
	checkAmount(fields, "coins", sub.Coins)
	checkAmount(fields, "total_counted", sub.TotalCounted)
	if sub.Discrepancy != nil {
		checkAmount(fields, "discrepancy", *sub.Discrepancy)
	}
	if len(fields) > 0 {
		return &Error{Fields: fields}
	}

	expected := sub.Denominations().Total().Add(sub.Coins)
	if !expected.Equal(sub.TotalCounted) {
		return FieldError("total_counted", fmt.Sprintf("must equal denominations plus coins (%s)", expected.String()))
	}

	return nil
}

// HistoryQuery разбирает фильтры истории: даты в формате DateLayout, user_id больше нуля,
// конец периода не раньше начала. Пустые значения означают отсутствие фильтра.
func HistoryQuery(q model.HistoryQuery) (model.HistoryFilter, error) {
	var (
		f      model.HistoryFilter
		fields = make(map[string]string)
	)

	parseDate := func(name, v string) *time.Time {
		if v == "" {
			return nil
		}
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			fields[name] = "format=" + DateLayout
			return nil
		}
		return &t
	}
	f.StartDate = parseDate("start_date", q.StartDate)
	f.EndDate = parseDate("end_date", q.EndDate)

	if q.UserID != "" {
		id, err := strconv.ParseInt(q.UserID, 10, 64)
		if err != nil || id <= 0 {
			fields["user_id"] = "gt=0"
		} else {
			f.UserID = &id
		}
	}

	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		fields["end_date"] = "gtefield=start_date"
	}

	if len(fields) > 0 {
		return model.HistoryFilter{}, &Error{Fields: fields}
	}
	return f, nil
}
