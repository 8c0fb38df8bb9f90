// Package pix builds BR Code static payloads (PIX "copia e cola") as EMV tag-length-value
// strings closed by a CRC16/CCITT-FALSE checksum.
package pix

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	gui          = "br.gov.bcb.pix"
	crcTag       = "6304"
	nameMaxLen   = 25
	cityMaxLen   = 15
	descMaxLen   = 50
	txidMaxLen   = 25
	fallbackName = "ESCOLA"
	fallbackCity = "CIDADE"
)

// Merchant identifies the receiving school on the payload.
type Merchant struct {
	Name string
	City string
}

// Static describes one static payload.
type Static struct {
	Key         string
	AmountCents int64
	Description string
	TxID        string
}

// TLV encodes one field: id, two-digit character count, value.
func TLV(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, utf8.RuneCountInString(value), value)
}

// TxIDFromUUID derives the transaction id from an installment id.
func TxIDFromUUID(id uuid.UUID) string {
	raw := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return truncate(raw, txidMaxLen)
}

// Payload renders the full payload including its trailing checksum.
func Payload(m Merchant, s Static) string {
	var mai strings.Builder
	mai.WriteString(TLV("00", gui))
	mai.WriteString(TLV("01", strings.TrimSpace(s.Key)))
	if desc := SanitizeDescription(s.Description); desc != "" {
		mai.WriteString(TLV("02", desc))
	}

	var b strings.Builder
	b.WriteString(TLV("00", "01"))
	b.WriteString(TLV("26", mai.String()))
	b.WriteString(TLV("52", "0000"))
	b.WriteString(TLV("53", "986"))
	b.WriteString(TLV("54", formatAmount(s.AmountCents)))
	b.WriteString(TLV("58", "BR"))
	b.WriteString(TLV("59", SanitizeName(m.Name)))
	b.WriteString(TLV("60", SanitizeCity(m.City)))
	b.WriteString(TLV("62", TLV("05", s.TxID)))
	b.WriteString(crcTag)

	body := b.String()
	return body + fmt.Sprintf("%04X", CRC16([]byte(body)))
}

// Verify reports whether the last four characters of payload are the checksum of the rest.
func Verify(payload string) bool {
	if len(payload) < 4 || !strings.HasSuffix(payload[:len(payload)-4], crcTag) {
		return false
	}
	body, sum := payload[:len(payload)-4], payload[len(payload)-4:]
	return fmt.Sprintf("%04X", CRC16([]byte(body))) == sum
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
