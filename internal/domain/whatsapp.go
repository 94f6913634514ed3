package domain

import (
	"fmt"
	"net/url"
	"strings"
)

const whatsAppBaseURL = "https://wa.me/"

// BouquetOrderMessage renders the chat message sent to the florist when a
// buyer submits a bouquet. Line items keep their literal newlines and the
// total keeps the currency suffix; both survive URL encoding.
func BouquetOrderMessage(items []OrderItem, total int64) string {
	var b strings.Builder
	b.WriteString("Здравствуйте! Хочу заказать букет:\n\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s × %d\n", item.Name, item.Quantity)
	}
	fmt.Fprintf(&b, "\n*Итого: %d ₸*", total)
	return b.String()
}

// CatalogOrderMessage renders the chat message for a single-product buy.
func CatalogOrderMessage(product Product) string {
	return fmt.Sprintf("Здравствуйте! Хочу заказать: %s — %d ₸", product.Name, product.Price)
}

// WhatsAppDeepLink builds the wa.me link opening a chat with the florist and
// the prefilled message. The phone number is reduced to digits first.
func WhatsAppDeepLink(phone, message string) string {
	digits := NormalizePhone(phone)
	if digits == "" {
		return ""
	}
	link := whatsAppBaseURL + digits
	if message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}
