package reporter

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"job-digest/internal/logger"
)

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	ToEmail      string `yaml:"to_email"`
}

// Enabled reports whether enough is configured to attempt delivery.
func (c EmailConfig) Enabled() bool {
	return c.SMTPHost != "" && c.FromEmail != "" && c.ToEmail != ""
}

// sendMail is swapped out in tests.
var sendMail = smtp.SendMail

const emailTemplate = `<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; font-size: 12px; }
        table { border-collapse: collapse; width: 100%; margin-bottom: 12px; }
        th, td { border-bottom: 1px solid #ddd; padding: 4px 6px; text-align: left; }
        .new { color: #27ae60; font-weight: bold; }
        .error { color: #c0392b; }
    </style>
</head>
<body>
    <h1>Hot Jobs - {{.Date.Format "2006-01-02"}}</h1>
    <p>NC: {{.NotContacted}}{{with .Summary}} | Tracked: {{.Tracked}}{{end}}{{range .Counts}} | {{.Label}}: {{.N}}{{end}}</p>

    {{range .Categories}}
    <h2>{{.Name}} ({{len .Listings}}) - NC: {{.NotContacted}}</h2>
    {{if .Error}}<p class="error">Not refreshed today: {{.Error}}</p>{{end}}
    {{if .Listings}}
    <table>
        <thead><tr><th>Company</th><th>Role</th><th>Location</th><th>Source</th></tr></thead>
        <tbody>
        {{range .Listings}}
        <tr>
            <td>{{.Company}}{{if .New}} <span class="new">NEW</span>{{end}}</td>
            <td>{{if .URL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}</td>
            <td>[{{.Tier}}] {{.Location}}</td>
            <td>{{.Source}}</td>
        </tr>
        {{end}}
        </tbody>
    </table>
    {{else}}
    <p>No open listings.</p>
    {{end}}
    {{end}}

    {{range .Pipeline}}
    <h2>Tracked: {{.Category}} ({{len .Entries}})</h2>
    <table>
        <thead><tr><th>Company</th><th>Status</th><th>Role</th><th>HR Contact</th></tr></thead>
        <tbody>
        {{range .Entries}}
        <tr>
            <td>{{.Company}}</td>
            <td>{{.State.Label}}</td>
            <td>{{if .RoleLink}}<a href="{{.RoleLink}}">{{.Role}}</a>{{else}}{{.Role}}{{end}}</td>
            <td>{{range .Contacts}}{{if .URL}}<a href="{{.URL}}">{{.Name}}</a>{{else}}{{.Name}}{{end}} {{end}}</td>
        </tr>
        {{end}}
        </tbody>
    </table>
    {{end}}
</body>
</html>
`

var digestTemplate = template.Must(template.New("email").Parse(emailTemplate))

func RenderDigest(d Digest) ([]byte, error) {
	var body bytes.Buffer
	if err := digestTemplate.Execute(&body, d); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return body.Bytes(), nil
}

func Subject(d Digest) string {
	return "Hot Jobs - " + d.Date.Format("2006-01-02")
}

func SendDigest(config EmailConfig, d Digest) error {
	log := logger.Get()
	log.Info().Int("listings", d.Total()).Msg("Generating digest email")

	body, err := RenderDigest(d)
	if err != nil {
		return err
	}

	headers := [][2]string{
		{"From", config.FromEmail},
		{"To", config.ToEmail},
		{"Subject", Subject(d)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var message bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&message, "%s: %s\r\n", h[0], h[1])
	}
	message.WriteString("\r\n")
	message.Write(body)

	var auth smtp.Auth
	if config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", config.SMTPUsername, config.SMTPPassword, config.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%d", config.SMTPHost, config.SMTPPort)
	log.Info().Str("from", config.FromEmail).Str("to", config.ToEmail).Str("addr", addr).Msg("Sending email")
	if err := sendMail(addr, auth, config.FromEmail, []string{config.ToEmail}, message.Bytes()); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}
