// Package notify sends the account e-mails: invitations and password
// resets.
package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltmpl "html/template"
	"net/mail"
	texttmpl "text/template"
)

type Message struct {
	To          mail.Address
	Subject     string
	TextContent string
	HTMLContent string
}

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var (
	textTemplates = texttmpl.Must(texttmpl.New("invite").Parse(
		"Hi {{.Name}},\n\nAn account was created for you on {{.App}}. Set your password within one hour:\n{{.Link}}\n",
	))
	htmlTemplates = htmltmpl.Must(htmltmpl.New("invite").Parse(
		`<p>Hi {{.Name}},</p><p>An account was created for you on {{.App}}. <a href="{{.Link}}">Set your password</a> within one hour.</p>`,
	))
)

func init() {
	texttmpl.Must(textTemplates.New("reset").Parse(
		"Hi {{.Name}},\n\nUse this link within one hour to choose a new password:\n{{.Link}}\n\nIgnore this e-mail if you did not ask for it.\n",
	))
	htmltmpl.Must(htmlTemplates.New("reset").Parse(
		`<p>Hi {{.Name}},</p><p><a href="{{.Link}}">Choose a new password</a> within one hour.</p><p>Ignore this e-mail if you did not ask for it.</p>`,
	))
}

type mailData struct {
	Name string
	App  string
	Link string
}

// Notifier renders account e-mails and hands them to a Sender.
type Notifier struct {
	sender  Sender
	appName string
}

func New(sender Sender, appName string) *Notifier {
	if appName == "" {
		appName = "EduHub"
	}
	return &Notifier{sender: sender, appName: appName}
}

func (n *Notifier) SendInvite(ctx context.Context, name, email, link string) error {
	return n.send(ctx, "invite", fmt.Sprintf("You have been invited to %s", n.appName), name, email, link)
}

func (n *Notifier) SendPasswordReset(ctx context.Context, name, email, link string) error {
	return n.send(ctx, "reset", fmt.Sprintf("Reset your %s password", n.appName), name, email, link)
}

// send renders the text and HTML bodies of the named template. User input
// is escaped in the HTML body.
func (n *Notifier) send(ctx context.Context, tmpl, subject, name, email, link string) error {
	data := mailData{Name: name, App: n.appName, Link: link}
	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, tmpl, data); err != nil {
		return fmt.Errorf("render %s text: %w", tmpl, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, tmpl, data); err != nil {
		return fmt.Errorf("render %s html: %w", tmpl, err)
	}
	return n.sender.Send(ctx, Message{
		To:          mail.Address{Name: name, Address: email},
		Subject:     subject,
		TextContent: text.String(),
		HTMLContent: html.String(),
	})
}
