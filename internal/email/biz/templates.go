package biz

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/lk2023060901/stage-portal-backend/internal/registration/types"
)

const layoutTmpl = `<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f5f5f5;font-family:'PingFang SC','Microsoft YaHei',sans-serif;">
  <div style="max-width:600px;margin:0 auto;padding:24px;">
    <div style="background:#ffffff;border-radius:8px;padding:32px;">
      <h2 style="color:#1a1a2e;margin-top:0;">{{.Title}}</h2>
      {{.Body}}
      <hr style="border:none;border-top:1px solid #eee;margin:24px 0;">
      <p style="color:#999;font-size:12px;">本邮件由系统自动发送，请勿直接回复。</p>
    </div>
  </div>
</body>
</html>`

const confirmationBody = `
<p>{{.Name}} 您好，</p>
<p>我们已收到您的节目报名，以下是报名信息：</p>
<table style="width:100%;border-collapse:collapse;color:#333;">
  <tr><td style="padding:6px 0;color:#888;width:90px;">报名编号</td><td>{{.RegistrationID}}</td></tr>
  <tr><td style="padding:6px 0;color:#888;">节目名称</td><td>{{.ProgramName}}</td></tr>
  <tr><td style="padding:6px 0;color:#888;">演职人员</td><td>{{.Performers}}</td></tr>
  <tr><td style="padding:6px 0;color:#888;">提交时间</td><td>{{.SubmittedAt}}</td></tr>
</table>
<p>审核结果将通过邮件通知，请留意查收。</p>`

const statusBody = `
<p>{{.Name}} 您好，</p>
<p>您报名的节目 <strong>{{.ProgramName}}</strong>（编号 {{.RegistrationID}}）审核状态已更新：</p>
<p style="font-size:18px;color:#e94560;margin:16px 0;"><strong>{{.Status}}</strong></p>
{{if .Note}}<p>审核备注：{{.Note}}</p>{{end}}`

const reminderBody = `
<p>{{.Name}} 您好，</p>
<p>这是关于您报名节目 <strong>{{.ProgramName}}</strong>（编号 {{.RegistrationID}}）的提醒：</p>
{{if .Note}}<p>{{.Note}}</p>{{end}}
<p>如有疑问请联系工作人员。</p>`

var (
	layoutT       = template.Must(template.New("layout").Parse(layoutTmpl))
	confirmationT = template.Must(template.New("confirmation").Parse(confirmationBody))
	statusT       = template.Must(template.New("status").Parse(statusBody))
	reminderT     = template.Must(template.New("reminder").Parse(reminderBody))
)

type mailData struct {
	Name           string
	RegistrationID string
	ProgramName    string
	Performers     string
	SubmittedAt    string
	Status         string
	Note           string
}

func newMailData(reg *types.Registration) mailData {
	submitted := ""
	if !reg.SubmittedAt.IsZero() {
		submitted = reg.SubmittedAt.Format("2006-01-02 15:04")
	} else {
		submitted = time.Now().Format("2006-01-02 15:04")
	}
	return mailData{
		Name:           reg.Name,
		RegistrationID: reg.RegistrationID,
		ProgramName:    reg.ProgramName,
		Performers:     reg.Performers,
		SubmittedAt:    submitted,
	}
}

// renderLayout 把正文片段套进统一布局
func renderLayout(title string, body template.HTML) (string, error) {
	var buf bytes.Buffer
	err := layoutT.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: body})
	if err != nil {
		return "", fmt.Errorf("render layout: %w", err)
	}
	return buf.String(), nil
}

func renderBody(t *template.Template, data mailData) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return template.HTML(buf.String()), nil
}
