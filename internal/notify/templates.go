package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/text/language"
)

// Message kinds rendered through the template registry.
const (
	KindConfirmation = "confirmation"
	KindReceipt      = "receipt"
)

var supportedLanguages = []language.Tag{
	language.English, // fallback
	language.Indonesian,
	language.Hindi,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// MatchLanguage maps a donor locale (BCP 47, possibly sloppy) onto one of the
// template languages. Unknown or empty locales fall back to English.
func MatchLanguage(locale string) language.Tag {
	if strings.TrimSpace(locale) == "" {
		return language.English
	}
	tag, _ := language.MatchStrings(languageMatcher, locale)
	base, _ := tag.Base()
	for _, supported := range supportedLanguages {
		if sb, _ := supported.Base(); sb == base {
			return supported
		}
	}
	return language.English
}

// WhatsAppLanguageCode converts a matched tag to the Graph API language code.
func WhatsAppLanguageCode(tag language.Tag) string {
	switch tag {
	case language.Indonesian:
		return "id"
	case language.Hindi:
		return "hi"
	default:
		return "en_US"
	}
}

// ReceiptData is the merge-field set shared by every receipt rendering.
type ReceiptData struct {
	DonorName string
	Amount    string
	ReceiptNo string
	Category  string
	Date      string
	OrgName   string
	OrgEmail  string
	OrgPhone  string
	PortalURL string
}

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var receiptSubjects = map[language.Tag]string{
	language.English:    "Donation receipt {{.ReceiptNo}} — {{.OrgName}}",
	language.Indonesian: "Bukti donasi {{.ReceiptNo}} — {{.OrgName}}",
	language.Hindi:      "दान रसीद {{.ReceiptNo}} — {{.OrgName}}",
}

const receiptBodyEN = `<div style="font-family:sans-serif;max-width:560px">
<h2>Thank you, {{.DonorName}}!</h2>
<p>We have received your donation of <strong>{{.Amount}}</strong>
towards <strong>{{.Category}}</strong> on {{.Date}}.</p>
<p>Receipt number: <strong>{{.ReceiptNo}}</strong></p>
{{if .PortalURL}}<p>You can view your donations at <a href="{{.PortalURL}}">{{.PortalURL}}</a>.</p>{{end}}
<p>{{.OrgName}}{{if .OrgEmail}} · {{.OrgEmail}}{{end}}{{if .OrgPhone}} · {{.OrgPhone}}{{end}}</p>
</div>`

const receiptBodyID = `<div style="font-family:sans-serif;max-width:560px">
<h2>Terima kasih, {{.DonorName}}!</h2>
<p>Kami telah menerima donasi Anda sebesar <strong>{{.Amount}}</strong>
untuk <strong>{{.Category}}</strong> pada {{.Date}}.</p>
<p>Nomor bukti: <strong>{{.ReceiptNo}}</strong></p>
{{if .PortalURL}}<p>Lihat donasi Anda di <a href="{{.PortalURL}}">{{.PortalURL}}</a>.</p>{{end}}
<p>{{.OrgName}}{{if .OrgEmail}} · {{.OrgEmail}}{{end}}{{if .OrgPhone}} · {{.OrgPhone}}{{end}}</p>
</div>`

const receiptBodyHI = `<div style="font-family:sans-serif;max-width:560px">
<h2>धन्यवाद, {{.DonorName}}!</h2>
<p>हमें {{.Date}} को <strong>{{.Category}}</strong> के लिए आपका
<strong>{{.Amount}}</strong> का दान प्राप्त हुआ है।</p>
<p>रसीद संख्या: <strong>{{.ReceiptNo}}</strong></p>
{{if .PortalURL}}<p>अपने दान <a href="{{.PortalURL}}">{{.PortalURL}}</a> पर देखें।</p>{{end}}
<p>{{.OrgName}}{{if .OrgEmail}} · {{.OrgEmail}}{{end}}{{if .OrgPhone}} · {{.OrgPhone}}{{end}}</p>
</div>`

var receiptTemplates = func() map[language.Tag]emailTemplate {
	bodies := map[language.Tag]string{
		language.English:    receiptBodyEN,
		language.Indonesian: receiptBodyID,
		language.Hindi:      receiptBodyHI,
	}
	out := make(map[language.Tag]emailTemplate, len(bodies))
	for tag, body := range bodies {
		out[tag] = emailTemplate{
			subject: template.Must(template.New("subject").Parse(receiptSubjects[tag])),
			body:    template.Must(template.New("body").Parse(body)),
		}
	}
	return out
}()

// RenderReceiptEmail produces the subject and HTML body for a receipt email
// in the language matched from the donor locale.
func RenderReceiptEmail(locale string, data ReceiptData) (subject, html string, err error) {
	tag := MatchLanguage(locale)
	tmpl, ok := receiptTemplates[tag]
	if !ok {
		tmpl = receiptTemplates[language.English]
	}

	var subjBuf, bodyBuf bytes.Buffer
	if err := tmpl.subject.Execute(&subjBuf, data); err != nil {
		return "", "", fmt.Errorf("render receipt subject: %w", err)
	}
	if err := tmpl.body.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("render receipt body: %w", err)
	}
	return subjBuf.String(), bodyBuf.String(), nil
}
