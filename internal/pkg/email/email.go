package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/safetypro/rumore-server/config"
)

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// SendPasswordReset 发送密码重置邮件，正文为意大利语（产品面向意大利用户）
func (s *Service) SendPasswordReset(to, resetLink string) error {
	subject := "Reimposta la tua password - Valutazione Rischio Rumore"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Reimposta la password</h2>
        <p>Gentile utente,</p>
        <p>Hai richiesto di reimpostare la password del tuo account. Clicca sul pulsante qui sotto per procedere:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reimposta password</a>
        </div>
        <p>Oppure copia questo link nel tuo browser:</p>
        <p style="background-color: #f3f4f6; padding: 10px; word-break: break-all;">%s</p>
        <p>Il link è valido per 30 minuti.</p>
        <p>Se non hai richiesto la reimpostazione della password, ignora questa email.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">Questa email è stata inviata automaticamente, si prega di non rispondere.</p>
    </div>
</body>
</html>
`, resetLink, resetLink)

	return s.sendHTML(to, subject, body)
}

// SendTrialEnding 试用期即将结束的提醒，由 trial_will_end webhook 触发
func (s *Service) SendTrialEnding(to, planName string) error {
	subject := "Il tuo periodo di prova sta per terminare - Valutazione Rischio Rumore"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Il periodo di prova sta per terminare</h2>
        <p>Gentile utente,</p>
        <p>Il periodo di prova del piano <strong>%s</strong> terminerà tra 3 giorni.</p>
        <p>Al termine della prova il primo addebito verrà effettuato automaticamente sul metodo di pagamento registrato.</p>
        <p>Puoi gestire o annullare l'abbonamento in qualsiasi momento dalla pagina del tuo account.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">Questa email è stata inviata automaticamente, si prega di non rispondere.</p>
    </div>
</body>
</html>
`, planName)

	return s.sendHTML(to, subject, body)
}

// SendPaymentFailed 扣款失败通知
func (s *Service) SendPaymentFailed(to string) error {
	subject := "Pagamento non riuscito - Valutazione Rischio Rumore"
	body := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #dc2626;">Pagamento non riuscito</h2>
        <p>Gentile utente,</p>
        <p>Non siamo riusciti ad addebitare l'ultimo rinnovo del tuo abbonamento.</p>
        <p>Aggiorna il metodo di pagamento dalla pagina del tuo account per evitare l'interruzione del servizio. Il tentativo di addebito verrà ripetuto automaticamente.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">Questa email è stata inviata automaticamente, si prega di non rispondere.</p>
    </div>
</body>
</html>
`

	return s.sendHTML(to, subject, body)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	headers := make(map[string]string)
	headers["From"] = s.cfg.From
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
