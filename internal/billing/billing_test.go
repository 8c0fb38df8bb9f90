package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/pix"
)

var (
	due    = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	instID = uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000001")
)

func installment() ledger.Installment {
	return ledger.Installment{ID: instID, Number: 1, DueDate: due, Amount: ledger.BRL(10000), Status: ledger.InstallmentPending}
}

func TestCode_Prefixes(t *testing.T) {
	assert.Equal(t, "BLT-20250301-a1b2c3d4", Code(ledger.BillingProviderBoleto, due, instID))
	assert.Equal(t, "CRN-PIX-20250301-a1b2c3d4", Code(ledger.BillingSchoolBookletPix, due, instID))
	assert.Equal(t, "CRN-20250301-a1b2c3d4", Code(ledger.BillingSchoolBooklet, due, instID))
}

func TestIssue_ProviderBoleto(t *testing.T) {
	is := NewIssuer(Config{BoletoBaseURL: "https://pay.example.com/boletos/"})
	instr := "Pagar em qualquer banco"
	got := is.Issue(Subject{Mode: ledger.BillingProviderBoleto, PaymentInstructions: &instr}, installment())

	require.NotNil(t, got.BoletoCode)
	require.NotNil(t, got.BoletoURL)
	require.NotNil(t, got.BoletoPDFURL)
	assert.Equal(t, "https://pay.example.com/boletos/BLT-20250301-a1b2c3d4", *got.BoletoURL)
	assert.Equal(t, "https://pay.example.com/boletos/BLT-20250301-a1b2c3d4.pdf", *got.BoletoPDFURL)
	assert.Nil(t, got.PixCopyPaste)
	assert.Equal(t, &instr, got.PaymentInstructions)
}

func TestIssue_DefaultBaseURL(t *testing.T) {
	got := NewIssuer(Config{}).Issue(Subject{Mode: ledger.BillingProviderBoleto}, installment())
	require.NotNil(t, got.BoletoURL)
	assert.True(t, strings.HasPrefix(*got.BoletoURL, DefaultBaseURL+"/BLT-"))
}

func TestIssue_BookletPix(t *testing.T) {
	key := "abc@bank"
	is := NewIssuer(Config{MerchantName: "Escola Sol", MerchantCity: "Recife"})
	got := is.Issue(Subject{
		Mode:                ledger.BillingSchoolBookletPix,
		PixKey:              &key,
		StudentName:         "Ana Souza",
		ContractDescription: "Mensalidade 2025",
	}, installment())

	require.NotNil(t, got.BoletoCode)
	assert.True(t, strings.HasPrefix(*got.BoletoCode, "CRN-PIX-20250301-"))
	assert.Nil(t, got.BoletoURL)
	require.NotNil(t, got.PixCopyPaste)
	payload := *got.PixCopyPaste
	assert.Contains(t, payload, "0108abc@bank")
	assert.Contains(t, payload, "ANA SOUZA - MENSALIDADE 2025")
	assert.Contains(t, payload, "5406100.00")
	assert.Contains(t, payload, "0525"+pix.TxIDFromUUID(instID))
	assert.True(t, pix.Verify(payload))
}

func TestIssue_BookletWithoutPixKeyHasNoPayload(t *testing.T) {
	got := NewIssuer(Config{}).Issue(Subject{Mode: ledger.BillingSchoolBookletPix}, installment())
	assert.Nil(t, got.PixCopyPaste)
	require.NotNil(t, got.BoletoCode)
}

func TestIssue_PlainBooklet(t *testing.T) {
	got := NewIssuer(Config{}).Issue(Subject{Mode: ledger.BillingSchoolBooklet}, installment())
	assert.Equal(t, "CRN-20250301-a1b2c3d4", *got.BoletoCode)
	assert.Nil(t, got.BoletoURL)
	assert.Nil(t, got.PixCopyPaste)
}
