package detect

import "strings"

// digitsOnly strips the separators detection patterns allow through.
func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// luhnValid reports whether a digit string passes the Luhn weighted digit-sum
// check used by payment card numbers.
func luhnValid(number string) bool {
	if number == "" {
		return false
	}
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		d := number[i]
		if d < '0' || d > '9' {
			return false
		}
		digit := int(d - '0')
		if alternate {
			digit *= 2
			if digit > 9 {
				digit = digit%10 + 1
			}
		}
		sum += digit
		alternate = !alternate
	}
	return sum%10 == 0
}

// ssnPlausible applies the structural constraints on US social security
// numbers: area cannot be 000, 666, or 9xx; group cannot be 00; serial cannot
// be 0000.
func ssnPlausible(ssn string) bool {
	if len(ssn) != 9 {
		return false
	}
	area := ssn[:3]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if ssn[3:5] == "00" {
		return false
	}
	return ssn[5:] != "0000"
}

// abaValid checks the 3-7-1 weighted checksum on US bank routing numbers.
func abaValid(routing string) bool {
	if len(routing) != 9 {
		return false
	}
	weights := [9]int{3, 7, 1, 3, 7, 1, 3, 7, 1}
	sum := 0
	for i := 0; i < 9; i++ {
		d := routing[i]
		if d < '0' || d > '9' {
			return false
		}
		sum += int(d-'0') * weights[i]
	}
	return sum%10 == 0
}

// ipValid reports whether every dotted-quad octet is in range.
func ipValid(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		n := 0
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return false
			}
			n = n*10 + int(part[i]-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

// deaValid checks the DEA registration number checksum: the last digit must
// equal the units digit of (d1+d3+d5) + 2*(d2+d4+d6).
func deaValid(dea string) bool {
	if len(dea) != 9 {
		return false
	}
	digits := dea[2:]
	odd, even := 0, 0
	for i := 0; i < 6; i++ {
		d := digits[i]
		if d < '0' || d > '9' {
			return false
		}
		if i%2 == 0 {
			odd += int(d - '0')
		} else {
			even += int(d - '0')
		}
	}
	check := (odd + 2*even) % 10
	return int(digits[6]-'0') == check
}
