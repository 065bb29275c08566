package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ShippingDetails описывает адрес доставки заказа.
// Создаётся до заказа и после этого не изменяется.
type ShippingDetails struct {
	ID           uuid.UUID
	FullName     string
	Email        string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
	CreatedAt    time.Time
}

// MissingFields возвращает имена обязательных полей, которые не заполнены.
func (s *ShippingDetails) MissingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"fullName", s.FullName},
		{"email", s.Email},
		{"phone", s.Phone},
		{"addressLine1", s.AddressLine1},
		{"city", s.City},
		{"country", s.Country},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	return missing
}

// Address собирает адрес в одну строку через запятую, пропуская пустые части.
func (s *ShippingDetails) Address() string {
	return JoinAddress(s.AddressLine1, s.AddressLine2, s.City, s.State, s.PostalCode, s.Country)
}

// JoinAddress склеивает непустые части адреса.
func JoinAddress(parts ...string) string {
	filled := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			filled = append(filled, p)
		}
	}

	return strings.Join(filled, ", ")
}
