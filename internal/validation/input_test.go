package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validInput() ReportInput {
	return ReportInput{
		Make:    "Toyota",
		Model:   "Camry",
		Year:    2020,
		Mileage: 85000,
		Price:   17500,
		Lng:     37.6176,
		Lat:     55.7558,
	}
}

func TestValidateReportInput(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ReportInput)
		wantErr bool
	}{
		{"валидный отчёт", func(in *ReportInput) {}, false},
		{"пустая марка", func(in *ReportInput) { in.Make = "  " }, true},
		{"слишком длинная модель", func(in *ReportInput) { in.Model = strings.Repeat("x", MaxModelLength+1) }, true},
		{"год до появления машин в продаже", func(in *ReportInput) { in.Year = MinYear - 1 }, true},
		{"год из будущего", func(in *ReportInput) { in.Year = time.Now().Year() + 2 }, true},
		{"следующий модельный год допустим", func(in *ReportInput) { in.Year = time.Now().Year() + 1 }, false},
		{"отрицательный пробег", func(in *ReportInput) { in.Mileage = -1 }, true},
		{"запредельный пробег", func(in *ReportInput) { in.Mileage = MaxMileage + 1 }, true},
		{"отрицательная цена", func(in *ReportInput) { in.Price = -0.01 }, true},
		{"долгота за границей диапазона", func(in *ReportInput) { in.Lng = 180.5 }, true},
		{"широта за границей диапазона", func(in *ReportInput) { in.Lat = -90.5 }, true},
		{"нулевые координаты валидны", func(in *ReportInput) { in.Lng, in.Lat = 0, 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			err := ValidateReportInput(in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last+tag@sub.domain.ru",
	}
	for _, email := range valid {
		assert.NoError(t, ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"no-at-sign",
		"two@@example.com",
		"user@localhost",
		"@example.com",
		"user@",
	}
	for _, email := range invalid {
		assert.Error(t, ValidateEmail(email), email)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Password1"))

	assert.Error(t, ValidatePassword("Pass1"), "короткий")
	assert.Error(t, ValidatePassword("password1"), "без заглавной")
	assert.Error(t, ValidatePassword("PASSWORD1"), "без строчной")
	assert.Error(t, ValidatePassword("Passwords"), "без цифры")
}

func TestValidateTagName(t *testing.T) {
	assert.NoError(t, ValidateTagName("family"))
	assert.Error(t, ValidateTagName("   "))
	assert.Error(t, ValidateTagName(strings.Repeat("a", 51)))
}
