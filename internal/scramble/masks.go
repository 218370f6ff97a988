package scramble

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dataveil/dataveil/internal/catalog"
)

// MaskValue produces the display mask for a detected value. With format
// preservation the mask keeps the value's literal shape so downstream parsing
// still succeeds; otherwise it is a deterministic token derived from
// (seed, type, value), so the same input yields the same token within a
// session without being reversible from the token alone.
func MaskValue(t catalog.InformationType, value string, preserveFormat bool, seed string) string {
	if !preserveFormat {
		return deterministicToken(t, value, seed)
	}

	switch t {
	case catalog.TypeNationalID:
		return "XXX-XX-XXXX"
	case catalog.TypeCreditCard:
		return "XXXX-XXXX-XXXX-" + lastDigits(value, 4)
	case catalog.TypePhoneNumber:
		return "XXX-XXX-XXXX"
	case catalog.TypeEmail:
		return maskEmail(value)
	case catalog.TypeIPAddress:
		return "xxx.xxx.xxx.xxx"
	case catalog.TypeDateOfBirth:
		return "XX/XX/XXXX"
	case catalog.TypeTaxID:
		return "XX-XXXXXXX"
	case catalog.TypeBankAccount, catalog.TypeRoutingNumber:
		return strings.Repeat("X", len(value)-4) + lastDigits(value, 4)
	default:
		return strings.Repeat("*", len(value))
	}
}

// maskEmail hides the mailbox and domain labels while preserving their
// lengths and the final TLD, so the result still looks like an address.
func maskEmail(value string) string {
	at := strings.LastIndexByte(value, '@')
	if at < 0 {
		return strings.Repeat("*", len(value))
	}
	local := strings.Repeat("*", at)
	domain := value[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	if dot < 0 {
		return local + "@" + strings.Repeat("*", len(domain))
	}
	return local + "@" + strings.Repeat("*", dot) + domain[dot:]
}

func lastDigits(value string, n int) string {
	var digits []byte
	for i := 0; i < len(value); i++ {
		if value[i] >= '0' && value[i] <= '9' {
			digits = append(digits, value[i])
		}
	}
	if len(digits) < n {
		return string(digits)
	}
	return string(digits[len(digits)-n:])
}

func deterministicToken(t catalog.InformationType, value, seed string) string {
	sum := sha256.Sum256([]byte(seed + "|" + string(t) + "|" + value))
	return fmt.Sprintf("%s_%s", strings.ToUpper(string(t)), hex.EncodeToString(sum[:])[:10])
}
