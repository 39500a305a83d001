package asaas

import "strings"

// PixKeyType is the pixAddressKeyType accepted by the transfers API.
type PixKeyType string

const (
	PixKeyCPF   PixKeyType = "CPF"
	PixKeyCNPJ  PixKeyType = "CNPJ"
	PixKeyEmail PixKeyType = "EMAIL"
	PixKeyPhone PixKeyType = "PHONE"
	PixKeyEVP   PixKeyType = "EVP"
)

// DetectPixKeyType infers the key type from its shape. Eleven digits are
// always read as a CPF; random keys fall through to EVP.
func DetectPixKeyType(key string) PixKeyType {
	digits := onlyDigits(key)
	switch {
	case len(digits) == 11:
		return PixKeyCPF
	case len(digits) == 14:
		return PixKeyCNPJ
	case strings.Contains(key, "@"):
		return PixKeyEmail
	case len(digits) >= 10 && len(digits) <= 11:
		return PixKeyPhone
	default:
		return PixKeyEVP
	}
}

// NormalizePixKey reduces document and phone keys to digits.
func NormalizePixKey(key string, keyType PixKeyType) string {
	switch keyType {
	case PixKeyCPF, PixKeyCNPJ, PixKeyPhone:
		return onlyDigits(key)
	default:
		return strings.TrimSpace(key)
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
