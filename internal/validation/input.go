package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxMakeLength  = 100
	MaxModelLength = 100
	MinYear        = 1930
	MaxPrice       = 100000000.0 // 100 миллионов
	MaxMileage     = 5000000
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ReportInput — поля отчёта, проверяемые перед записью.
type ReportInput struct {
	Make    string
	Model   string
	Year    int
	Mileage int
	Price   float64
	Lng     float64
	Lat     float64
}

// ValidateReportInput проверяет данные отчёта о машине.
// Числовые поля не могут быть отрицательными, координаты должны быть
// валидными географическими значениями.
func ValidateReportInput(in ReportInput) error {
	if err := ValidateNonEmpty("марка", in.Make); err != nil {
		return err
	}
	if err := ValidateLength("марка", in.Make, 1, MaxMakeLength); err != nil {
		return err
	}
	if err := ValidateNonEmpty("модель", in.Model); err != nil {
		return err
	}
	if err := ValidateLength("модель", in.Model, 1, MaxModelLength); err != nil {
		return err
	}

	if in.Year < MinYear || in.Year > time.Now().Year()+1 {
		return fmt.Errorf("год выпуска должен быть от %d до %d", MinYear, time.Now().Year()+1)
	}
	if in.Mileage < 0 || in.Mileage > MaxMileage {
		return fmt.Errorf("пробег должен быть от 0 до %d", MaxMileage)
	}
	if in.Price < 0 || in.Price > MaxPrice {
		return fmt.Errorf("цена должна быть от 0 до %.0f", MaxPrice)
	}
	if in.Lng < -180 || in.Lng > 180 {
		return fmt.Errorf("долгота должна быть в диапазоне от -180 до 180")
	}
	if in.Lat < -90 || in.Lat > 90 {
		return fmt.Errorf("широта должна быть в диапазоне от -90 до 90")
	}

	return nil
}

// ValidateTagName проверяет имя тега.
func ValidateTagName(name string) error {
	if err := ValidateNonEmpty("имя тега", name); err != nil {
		return err
	}
	return ValidateLength("имя тега", name, 1, 50)
}
