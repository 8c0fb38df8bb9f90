package contract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/tinoosan/schoolfin/internal/errs"
	"github.com/tinoosan/schoolfin/internal/ledger"
)

const minTemplateLength = 40

// DefaultTemplate is served until a school stores its own contract text.
const DefaultTemplate = `CONTRATO DE PRESTACAO DE SERVICOS EDUCACIONAIS

Escola: {{school_name}} ({{school_code}})
Cidade: {{school_city}}
Data: {{date}}

Aluno(a): {{student_name}}
Responsavel financeiro: {{payer_name}}

Plano contratado: {{description}}
Valor total: R$ {{total_amount}}
Quantidade de parcelas: {{installments_count}}
Primeiro vencimento: {{first_due_date}}

As partes acima identificadas acordam com as condicoes de prestacao de servicos educacionais e pagamento das mensalidades.

Assinaturas:

____________________________________
Responsavel Financeiro

____________________________________
Escola - {{school_signature_name}}
`

func (s *service) GetTemplate(ctx context.Context, p ledger.Principal) (Template, error) {
	if err := p.Require(ledger.Members...); err != nil {
		return Template{}, err
	}
	sc, err := s.repo.GetSchool(ctx, p.TenantID)
	if err != nil {
		return Template{}, err
	}
	return newTemplate(sc), nil
}

func (s *service) UpdateTemplate(ctx context.Context, p ledger.Principal, template string, city, signature *string) (Template, error) {
	if err := p.Require(ledger.Managers...); err != nil {
		return Template{}, err
	}
	template = strings.TrimSpace(template)
	if utf8.RuneCountInString(template) < minTemplateLength {
		return Template{}, errs.Invalid("contract template is too short")
	}
	sc, err := s.repo.UpdateSchoolTemplate(ctx, p.TenantID, template, trimmed(city), trimmed(signature))
	if err != nil {
		return Template{}, err
	}
	return newTemplate(sc), nil
}

func newTemplate(sc ledger.School) Template {
	t := Template{School: sc, Template: DefaultTemplate}
	if sc.ContractTemplate != nil {
		t.Template = *sc.ContractTemplate
	}
	return t
}
