package mailer

import (
	"bytes"
	"html/template"
)

var tastingInvitationTmpl = template.Must(template.New("tasting_invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Food tasting for your {{.EventType}}</h2>
  <p>Hi {{.ContactName}},</p>
  <p>Thank you for booking with us. Before your event on <strong>{{.EventDate}}</strong>
  we would like to invite you to a food tasting on <strong>{{.TastingDate}}</strong>
  at <strong>{{.TastingTime}}</strong>.</p>
  <p><a href="{{.ConfirmURL}}">Confirm the tasting schedule</a></p>
  <p>Can't make it? <a href="{{.RescheduleURL}}">Request a different date</a>.</p>
  <p>This link is personal, please do not forward it.</p>
</body>
</html>`))

type TastingInvitation struct {
	ContactName   string
	EventType     string
	EventDate     string
	TastingDate   string
	TastingTime   string
	ConfirmURL    string
	RescheduleURL string
}

func RenderTastingInvitation(data TastingInvitation) (string, error) {
	var buf bytes.Buffer
	if err := tastingInvitationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
