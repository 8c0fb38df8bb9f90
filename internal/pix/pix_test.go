package pix

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hex4 = regexp.MustCompile(`^[0-9A-F]{4}$`)

func TestCRC16_CheckValue(t *testing.T) {
	// standard check value of CRC-16/CCITT-FALSE
	assert.Equal(t, uint16(0x29B1), CRC16([]byte("123456789")))
	assert.Equal(t, uint16(0xFFFF), CRC16(nil))
}

func TestTLV(t *testing.T) {
	assert.Equal(t, "000201", TLV("00", "01"))
	assert.Equal(t, "5802BR", TLV("58", "BR"))
	assert.Equal(t, "0014br.gov.bcb.pix", TLV("00", "br.gov.bcb.pix"))
	// length counts characters, not bytes
	assert.Equal(t, "0203ÃÉÍ", TLV("02", "ÃÉÍ"))
}

func TestSanitizeName(t *testing.T) {
	got := SanitizeName("Escola Ação & Cia!!")
	assert.Equal(t, "ESCOLA AO CIA", got)
	assert.Regexp(t, `^[A-Z0-9 ]+$`, got)
	assert.LessOrEqual(t, len(got), 25)
	assert.Equal(t, strings.TrimSpace(got), got)
	assert.NotContains(t, got, "  ")
}

func TestSanitize_FallbacksAndLimits(t *testing.T) {
	assert.Equal(t, "ESCOLA", SanitizeName("  ** ç **  "))
	assert.Equal(t, "CIDADE", SanitizeCity(""))
	assert.Equal(t, "SO PAULO", SanitizeCity("São   Paulo"))

	long := SanitizeName("Colegio Estadual Professor Joaquim Nabuco")
	assert.LessOrEqual(t, len(long), 25)
	assert.Equal(t, strings.TrimSpace(long), long)

	city := SanitizeCity("Rio de Janeiro Capital")
	assert.Equal(t, "RIO DE JANEIRO", city)

	assert.Equal(t, "", SanitizeDescription("  !!! "))
	assert.Equal(t, "ANA - 1/2 MENS.", SanitizeDescription("Ana - 1/2 mens.!"))
	assert.LessOrEqual(t, len(SanitizeDescription(strings.Repeat("abc ", 40))), 50)
}

func TestTxIDFromUUID(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	assert.Equal(t, "123E4567E89B12D3A45642661", TxIDFromUUID(id))
}

func TestPayload_Layout(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	p := Payload(Merchant{}, Static{
		Key:         " abc@bank ",
		AmountCents: 10000,
		Description: "Ana - Mensalidade 2025",
		TxID:        TxIDFromUUID(id),
	})

	want := "000201" +
		"2656" + "0014br.gov.bcb.pix" + "0108abc@bank" + "0222ANA - MENSALIDADE 2025" +
		"52040000" +
		"5303986" +
		"5406100.00" +
		"5802BR" +
		"5906ESCOLA" +
		"6006CIDADE" +
		"6229" + "0525123E4567E89B12D3A45642661" +
		"6304"
	require.True(t, strings.HasPrefix(p, want), "payload %q", p)
	require.Len(t, p, len(want)+4)
	assert.Regexp(t, hex4, p[len(p)-4:])
	assert.True(t, Verify(p))
}

func TestPayload_OmitsEmptyDescription(t *testing.T) {
	p := Payload(Merchant{Name: "Escola Sol", City: "Recife"}, Static{Key: "k", AmountCents: 5, TxID: "ABC"})
	assert.Contains(t, p, "26"+"23"+"0014br.gov.bcb.pix"+"0101k")
	assert.Contains(t, p, "540"+"40.05")
	assert.Contains(t, p, "5910ESCOLA SOL")
	assert.Contains(t, p, "6006RECIFE")
	assert.True(t, Verify(p))
}

func TestPayload_ChecksumSelfVerifies(t *testing.T) {
	keys := []string{"abc@bank", "+5511999998888", "12345678909", uuid.NewString()}
	amounts := []int64{1, 99, 10000, 123456789}
	for _, k := range keys {
		for _, a := range amounts {
			p := Payload(Merchant{Name: "Escola Ação & Cia!!", City: "Belo Horizonte"}, Static{
				Key:         k,
				AmountCents: a,
				Description: "Aluno Ç - Plano anual / 2025",
				TxID:        TxIDFromUUID(uuid.New()),
			})
			body, sum := p[:len(p)-4], p[len(p)-4:]
			assert.Regexp(t, hex4, sum)
			assert.Equal(t, sum, strings.ToUpper(sumHex(CRC16([]byte(body)))))
			assert.True(t, Verify(p))
		}
	}
}

func TestVerify_RejectsTampering(t *testing.T) {
	p := Payload(Merchant{}, Static{Key: "abc@bank", AmountCents: 10000, TxID: "X"})
	tampered := strings.Replace(p, "100.00", "900.00", 1)
	assert.False(t, Verify(tampered))
	assert.False(t, Verify("63"))
}

func sumHex(v uint16) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[v>>12&0xF], digits[v>>8&0xF], digits[v>>4&0xF], digits[v&0xF]})
}
