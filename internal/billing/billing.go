// Package billing turns an installment into its payment instrument: a boleto or booklet
// reference code, hosted links for provider boletos, and a PIX payload for booklet+PIX.
package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/pix"
)

// DefaultBaseURL is used when no boleto base URL is configured.
const DefaultBaseURL = "http://localhost:3333/boletos"

// Config is the encoder configuration. It is passed in explicitly; encoders never read
// process state.
type Config struct {
	BoletoBaseURL string
	MerchantName  string
	MerchantCity  string
}

// Issuer generates instruments for installments.
type Issuer struct {
	baseURL  string
	merchant pix.Merchant
}

func NewIssuer(cfg Config) *Issuer {
	base := strings.TrimSpace(cfg.BoletoBaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	return &Issuer{
		baseURL:  strings.TrimRight(base, "/"),
		merchant: pix.Merchant{Name: cfg.MerchantName, City: cfg.MerchantCity},
	}
}

// Prefix returns the code prefix for mode.
func Prefix(mode ledger.BillingMode) string {
	switch mode {
	case ledger.BillingProviderBoleto:
		return "BLT"
	case ledger.BillingSchoolBookletPix:
		return "CRN-PIX"
	default:
		return "CRN"
	}
}

// Code builds PREFIX-YYYYMMDD-xxxxxxxx from the due date and the first 8 characters of the
// installment id.
func Code(mode ledger.BillingMode, due time.Time, installmentID uuid.UUID) string {
	return Prefix(mode) + "-" + due.Format("20060102") + "-" + installmentID.String()[:8]
}

// Subject is what the issuer needs to know about the contract being billed.
type Subject struct {
	Mode                ledger.BillingMode
	PixKey              *string
	PaymentInstructions *string
	StudentName         string
	ContractDescription string
}

// Issue computes the instrument for one installment of subject.
func (is *Issuer) Issue(sub Subject, in ledger.Installment) ledger.Instrument {
	code := Code(sub.Mode, in.DueDate, in.ID)
	out := ledger.Instrument{BoletoCode: &code, PaymentInstructions: sub.PaymentInstructions}
	switch sub.Mode {
	case ledger.BillingProviderBoleto:
		url := is.baseURL + "/" + code
		pdf := url + ".pdf"
		out.BoletoURL, out.BoletoPDFURL = &url, &pdf
	case ledger.BillingSchoolBookletPix:
		if sub.PixKey != nil {
			payload := pix.Payload(is.merchant, pix.Static{
				Key:         *sub.PixKey,
				AmountCents: ledger.Cents(in.Amount),
				Description: sub.StudentName + " - " + sub.ContractDescription,
				TxID:        pix.TxIDFromUUID(in.ID),
			})
			out.PixCopyPaste = &payload
		}
	}
	return out
}
