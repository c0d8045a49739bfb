package service

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// EmailContent is the text of one kind of transactional email.
type EmailContent struct {
	Subject  string
	Title    string
	Subtitle string
	Button   string
	Small    string
}

var (
	VerifyEmailContent = EmailContent{
		Subject:  "Easy Forms - Email Verification",
		Title:    "Welcome to Easy Forms API",
		Subtitle: "Click the `Verify Email` button to confirm your email",
		Button:   "Verify Email",
		Small:    "If the button above doesn't work, use the link below",
	}

	UpdateEmailContent = EmailContent{
		Subject:  "Easy Forms - Update Email",
		Title:    "Update Your Easy Forms Account",
		Subtitle: "Click the `Verify Email` button to confirm and update your account to this email",
		Button:   "Verify Email",
		Small:    "If the button above doesn't work, use the link below",
	}

	ResetPasswordContent = EmailContent{
		Subject:  "Easy Forms - Reset Password",
		Title:    "Reset Your Easy Forms Password",
		Subtitle: "Click the `Reset Password` button to set your new password",
		Button:   "Reset Password",
		Small:    "If the button above doesn't work, use the link below",
	}
)

var emailTemplate = template.Must(template.New("email").Parse(`<html>
  <body style="background-color:#dde3ff;font-family:Roboto,sans-serif;text-align:center">
    <article style="background-color:#f7f8fc;border-radius:0.75em;max-width:60ch;margin:auto;padding:2em">
      <h1>{{.Title}}</h1>
      <p>{{.Subtitle}}</p>
      <p>If you don't know what this email is about please ignore or delete it.</p>
      <a href="{{.Link}}" style="background-color:#3a5cff;color:#f7f8fc;border-radius:0.75em;padding:1em;text-decoration:none">{{.Button}}</a>
      <p><small>{{.Small}}</small></p>
      <a href="{{.Link}}" style="font-size:0.75em">{{.Base}}{{range .Parts}}<br><span>{{.}}</span>{{end}}</a>
    </article>
  </body>
</html>
`))

type emailData struct {
	EmailContent
	Link  string
	Base  string
	Parts []string
}

// RenderEmail fills the generic email template. The visible copy of the
// link has its query split over three lines so long tokens wrap in mail
// clients.
func RenderEmail(content EmailContent, link string) (string, error) {
	base, query, found := strings.Cut(link, "?")
	if found {
		base += "?"
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, emailData{
		EmailContent: content,
		Link:         link,
		Base:         base,
		Parts:        splitThirds(query),
	}); err != nil {
		return "", fmt.Errorf("failed to render email, %w", err)
	}

	return buf.String(), nil
}

func splitThirds(s string) []string {
	if s == "" {
		return nil
	}

	third := (len(s) + 1) / 3

	return []string{s[:third], s[third : third*2], s[third*2:]}
}
