package studio

import "github.com/book-expert/voice-studio/internal/tts"

// Remediation tells the UI which affordance to offer for a failure.
type Remediation string

// Remediations.
const (
	RemediationReselectCredential Remediation = "reselect_credential"
	RemediationSupplyCredential   Remediation = "supply_credential"
	RemediationCheckCredential    Remediation = "check_credential"
	RemediationRetry              Remediation = "retry"
)

// User facing messages.
const (
	msgEntityNotFound     = "Váš vybraný projekt nebo API klíč již neexistuje. Vyberte prosím klíč znovu."
	msgQuotaExhausted     = "Bezplatná kvóta byla vyčerpána. Pro další generování použijte vlastní API klíč."
	msgCredential         = "Problém s API klíčem. Zkontrolujte prosím své nastavení."
	msgGeneric            = "Nepodařilo se vygenerovat hlas. Zkontrolujte připojení nebo zkuste vlastní API klíč."
	msgMicrophone         = "Mikrofon není dostupný. Pro klonování hlasu je vyžadován přístup k mikrofonu."
	msgInsufficientSample = "Nahrávka nebyla úspěšná. Zkuste to prosím znovu a mluvte nahlas."
	msgCloneFailed        = "Klonování hlasu se nezdařilo. Zkuste to prosím znovu."
)

// ErrorView is the failure shown to the user after a generation attempt.
type ErrorView struct {
	Message     string      `json:"message"`
	Remediation Remediation `json:"remediation"`
	Kind        tts.Kind    `json:"-"`
	KindName    string      `json:"kind"`
}

func errorViewFor(kind tts.Kind) *ErrorView {
	view := &ErrorView{Kind: kind, KindName: kind.String()}

	switch kind {
	case tts.KindEntityNotFound:
		view.Message = msgEntityNotFound
		view.Remediation = RemediationReselectCredential
	case tts.KindQuotaExhausted:
		view.Message = msgQuotaExhausted
		view.Remediation = RemediationSupplyCredential
	case tts.KindCredential:
		view.Message = msgCredential
		view.Remediation = RemediationCheckCredential
	case tts.KindUnknown:
		view.Message = msgGeneric
		view.Remediation = RemediationRetry
	}

	return view
}
