package utils

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// TableQRCodePNG renders the URL a customer scans to join the table.
func TableQRCodePNG(baseURL, token string, size int) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("empty qr token")
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(TableJoinURL(baseURL, token), qrcode.Medium, size)
}

// TableJoinURL is the page a scanned table QR code opens.
func TableJoinURL(baseURL, token string) string {
	return fmt.Sprintf("%s/scan/%s", baseURL, token)
}
